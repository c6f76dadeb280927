package trailer

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	model "novel2trailer/internal/model/trailer"
	"novel2trailer/internal/pkg/trailertools"
)

// ExtractScenes 逐章抽取场景
// 已有结果的章节跳过；单章失败只计数不中断（网络级失败除外）；
// 并发度由配置控制，1 为严格串行
func (s *trailerService) ExtractScenes(ctx context.Context, novelID string) (*StageSummary, error) {
	novelEntity, err := s.novelRepo.FindByID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("failed to find novel: %w", err)
	}

	chapters, err := s.chapterRepo.FindByNovelID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("failed to find chapters: %w", err)
	}
	if len(chapters) == 0 {
		return nil, fmt.Errorf("novel %s has no chapters", novelID)
	}

	summary := &StageSummary{Total: len(chapters)}
	var mu sync.Mutex

	parallelism := s.cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for _, ch := range chapters {
		ch := ch
		g.Go(func() error {
			exists, err := s.sceneRepo.Exists(gctx, novelID, ch.ChapterID)
			if err != nil {
				return fmt.Errorf("check scene existence for %s: %w", ch.ChapterID, err)
			}
			if exists {
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				log.Info().Str("chapter_id", ch.ChapterID).Msg("章节场景已存在，跳过")
				return nil
			}

			input := trailertools.ChapterInput{
				ChapterID:    ch.ChapterID,
				ChapterTitle: ch.Title,
				VolumeName:   ch.VolumeName,
				ChapterText:  ch.Text,
			}
			result, err := s.sceneExtractor.ExtractScenesForChapter(
				gctx, novelEntity.Title, novelEntity.Summary, novelEntity.Language, input)
			if err != nil {
				mu.Lock()
				summary.Failed++
				mu.Unlock()
				log.Error().Err(err).Str("chapter_id", ch.ChapterID).Msg("章节场景抽取失败")
				return nil
			}

			doc := &model.ChapterSceneSet{
				NovelID:   novelID,
				ChapterID: ch.ChapterID,
				Scenes:    *result,
			}
			if err := s.sceneRepo.Upsert(gctx, doc); err != nil {
				return fmt.Errorf("save scenes for %s: %w", ch.ChapterID, err)
			}

			mu.Lock()
			summary.Processed++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	if scenes, err := s.assembleNovelScenes(ctx, novelID); err == nil {
		s.writeArtifact(ctx, novelID, "novel_scenes.json", scenes)
	}

	log.Info().
		Str("novel_id", novelID).
		Int("total", summary.Total).
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("场景抽取阶段完成")

	return summary, nil
}

// GetScenes 返回整本小说的场景索引产物
func (s *trailerService) GetScenes(ctx context.Context, novelID string) (*trailertools.NovelScenes, error) {
	return s.assembleNovelScenes(ctx, novelID)
}

// assembleNovelScenes 把逐章抽取结果按章节顺序拼成全书场景产物
func (s *trailerService) assembleNovelScenes(ctx context.Context, novelID string) (*trailertools.NovelScenes, error) {
	novelEntity, err := s.novelRepo.FindByID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("failed to find novel: %w", err)
	}

	sets, err := s.sceneRepo.FindByNovelID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("failed to find scenes: %w", err)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("novel %s has no extracted scenes", novelID)
	}

	ns := &trailertools.NovelScenes{
		NovelID:  novelID,
		Title:    novelEntity.Title,
		Author:   novelEntity.Author,
		Language: novelEntity.Language,
	}
	for _, set := range sets {
		ns.Chapters = append(ns.Chapters, set.Scenes)
	}
	return ns, nil
}

// loadSceneIndex 拼装全书场景并建索引（规划与派生阶段共用）
func (s *trailerService) loadSceneIndex(ctx context.Context, novelID string) (*trailertools.NovelScenes, *trailertools.SceneIndex, error) {
	scenes, err := s.assembleNovelScenes(ctx, novelID)
	if err != nil {
		return nil, nil, err
	}
	index := trailertools.BuildSceneIndex(scenes)
	if index.Len() == 0 {
		return nil, nil, fmt.Errorf("scene index for novel %s is empty", novelID)
	}
	return scenes, index, nil
}
