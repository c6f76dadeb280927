package trailer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	model "novel2trailer/internal/model/trailer"
	"novel2trailer/internal/pkg/trailertools"
)

// BuildWorldProfile 两段式世界观档案：逐章抽线索，再一次性合成全书档案
// 已有档案直接跳过；重跑需先删除旧档案（或接受覆盖语义的调用方自行处理）
func (s *trailerService) BuildWorldProfile(ctx context.Context, novelID string) error {
	exists, err := s.worldRepo.Exists(ctx, novelID)
	if err != nil {
		return fmt.Errorf("check world profile existence: %w", err)
	}
	if exists {
		log.Info().Str("novel_id", novelID).Msg("世界观档案已存在，跳过")
		return nil
	}

	novelEntity, err := s.novelRepo.FindByID(ctx, novelID)
	if err != nil {
		return fmt.Errorf("failed to find novel: %w", err)
	}

	chapters, err := s.chapterRepo.FindByNovelID(ctx, novelID)
	if err != nil {
		return fmt.Errorf("failed to find chapters: %w", err)
	}
	if len(chapters) == 0 {
		return fmt.Errorf("novel %s has no chapters", novelID)
	}

	var hints []trailertools.ChapterWorldHints
	failed := 0
	for _, ch := range chapters {
		input := trailertools.ChapterInput{
			ChapterID:    ch.ChapterID,
			ChapterTitle: ch.Title,
			VolumeName:   ch.VolumeName,
			ChapterText:  ch.Text,
		}
		hint, err := s.worldBuilder.ExtractChapterHints(ctx, novelEntity.Title, input)
		if err != nil {
			failed++
			log.Error().Err(err).Str("chapter_id", ch.ChapterID).Msg("章节世界观线索抽取失败")
			continue
		}
		hints = append(hints, *hint)
	}
	if len(hints) == 0 {
		return fmt.Errorf("no world hints extracted for novel %s", novelID)
	}

	profile, err := s.worldBuilder.SynthesizeWorldProfile(ctx, novelEntity.Title, hints)
	if err != nil {
		return fmt.Errorf("synthesize world profile: %w", err)
	}

	doc := &model.WorldProfileDoc{
		NovelID: novelID,
		Profile: *profile,
		Hints:   hints,
	}
	if err := s.worldRepo.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("save world profile: %w", err)
	}

	s.writeArtifact(ctx, novelID, "world_profile.json", profile)

	log.Info().
		Str("novel_id", novelID).
		Int("hint_chapters", len(hints)).
		Int("failed_chapters", failed).
		Msg("世界观档案合成完成")

	return nil
}

// GetWorldProfile 获取小说的世界观档案
func (s *trailerService) GetWorldProfile(ctx context.Context, novelID string) (*trailertools.WorldProfile, error) {
	doc, err := s.worldRepo.FindByNovelID(ctx, novelID)
	if err != nil {
		return nil, err
	}
	return &doc.Profile, nil
}
