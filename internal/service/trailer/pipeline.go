package trailer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// RunPipeline 按固定阶段顺序执行整条流水线
// 每阶段开始前回调 progress（供任务登记表更新当前阶段）；
// 各阶段内部自带幂等跳过，所以失败后重跑同一个 novel 会从断点继续
func (s *trailerService) RunPipeline(ctx context.Context, novelID string, progress func(stage string)) error {
	if progress == nil {
		progress = func(string) {}
	}

	type stage struct {
		name string
		run  func(context.Context) error
	}

	stages := []stage{
		{"scene_extraction", func(ctx context.Context) error {
			_, err := s.ExtractScenes(ctx, novelID)
			return err
		}},
		{"character_extraction", func(ctx context.Context) error {
			_, err := s.ExtractCharacters(ctx, novelID)
			return err
		}},
		{"character_profiles", func(ctx context.Context) error {
			_, err := s.BuildCharacterProfiles(ctx, novelID)
			return err
		}},
		{"world_profile", func(ctx context.Context) error {
			return s.BuildWorldProfile(ctx, novelID)
		}},
		{"trailer_script", func(ctx context.Context) error {
			_, err := s.PlanTrailerScript(ctx, novelID)
			return err
		}},
		{"keyframe_derivation", func(ctx context.Context) error {
			_, err := s.DeriveKeyframes(ctx, novelID)
			return err
		}},
		{"style_unification", func(ctx context.Context) error {
			_, err := s.ApplyStyle(ctx, novelID)
			return err
		}},
		{"portraits", func(ctx context.Context) error {
			_, err := s.GeneratePortraits(ctx, novelID)
			return err
		}},
		{"keyframe_images", func(ctx context.Context) error {
			_, err := s.GenerateKeyframeImages(ctx, novelID)
			return err
		}},
		{"keyframe_videos", func(ctx context.Context) error {
			_, err := s.GenerateKeyframeVideos(ctx, novelID)
			return err
		}},
		{"concat", func(ctx context.Context) error {
			_, err := s.ConcatFinalVideo(ctx, novelID)
			return err
		}},
	}

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		progress(st.name)
		log.Info().Str("novel_id", novelID).Str("stage", st.name).Msg("流水线阶段开始")

		if err := st.run(ctx); err != nil {
			log.Error().Err(err).Str("novel_id", novelID).Str("stage", st.name).Msg("流水线阶段失败")
			return fmt.Errorf("pipeline stage %s: %w", st.name, err)
		}
	}

	log.Info().Str("novel_id", novelID).Msg("流水线全部阶段完成")
	return nil
}
