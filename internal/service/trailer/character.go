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

// ExtractCharacters 逐章抽取角色提及
// 与场景抽取同构：跳过已有、单章失败计数、可配置并发
func (s *trailerService) ExtractCharacters(ctx context.Context, novelID string) (*StageSummary, error) {
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
			exists, err := s.characterRepo.MentionsExist(gctx, novelID, ch.ChapterID)
			if err != nil {
				return fmt.Errorf("check mentions existence for %s: %w", ch.ChapterID, err)
			}
			if exists {
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				log.Info().Str("chapter_id", ch.ChapterID).Msg("章节角色提及已存在，跳过")
				return nil
			}

			input := trailertools.ChapterInput{
				ChapterID:    ch.ChapterID,
				ChapterTitle: ch.Title,
				VolumeName:   ch.VolumeName,
				ChapterText:  ch.Text,
			}
			result, err := s.charExtractor.ExtractCharactersForChapter(gctx, novelEntity.Title, input)
			if err != nil {
				mu.Lock()
				summary.Failed++
				mu.Unlock()
				log.Error().Err(err).Str("chapter_id", ch.ChapterID).Msg("章节角色抽取失败")
				return nil
			}

			doc := &model.ChapterCharacterSet{
				NovelID:    novelID,
				ChapterID:  ch.ChapterID,
				Characters: *result,
			}
			if err := s.characterRepo.UpsertMentions(gctx, doc); err != nil {
				return fmt.Errorf("save mentions for %s: %w", ch.ChapterID, err)
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

	log.Info().
		Str("novel_id", novelID).
		Int("total", summary.Total).
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("角色抽取阶段完成")

	return summary, nil
}

// BuildCharacterProfiles 聚合全书角色、选出主角名单并合成基底特征档案
// 必须在全部章节的角色提及就绪后执行（全量屏障）
func (s *trailerService) BuildCharacterProfiles(ctx context.Context, novelID string) (*StageSummary, error) {
	novelEntity, err := s.novelRepo.FindByID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("failed to find novel: %w", err)
	}

	sets, err := s.characterRepo.FindMentionsByNovelID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("failed to find character mentions: %w", err)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("novel %s has no character mentions", novelID)
	}

	chapterSets := make([]trailertools.ChapterCharacters, 0, len(sets))
	for _, set := range sets {
		chapterSets = append(chapterSets, set.Characters)
	}

	aggregated := trailertools.AggregateCharacters(chapterSets)
	topN := s.cfg.TopCharacters
	if topN <= 0 {
		topN = 5
	}
	mains := trailertools.SelectMainCharacters(aggregated, topN, s.cfg.MinCharacterScore)
	if len(mains) == 0 {
		return nil, fmt.Errorf("no main characters selected for novel %s", novelID)
	}

	summary := &StageSummary{Total: len(mains)}
	var profiles []trailertools.CharacterBaseProfile

	for _, character := range mains {
		exists, err := s.characterRepo.ProfileExists(ctx, novelID, character.Name)
		if err != nil {
			return summary, fmt.Errorf("check profile existence for %s: %w", character.Name, err)
		}
		if exists {
			summary.Skipped++
			log.Info().Str("character", character.Name).Msg("主角档案已存在，跳过")
			continue
		}

		profile, err := s.profileBuilder.BuildBaseProfile(ctx, novelEntity.Title, character)
		if err != nil {
			summary.Failed++
			log.Error().Err(err).Str("character", character.Name).Msg("主角档案合成失败")
			continue
		}

		doc := &model.CharacterProfile{
			NovelID:    novelID,
			Name:       character.Name,
			Score:      trailertools.ScoreCharacter(character),
			Aggregated: character,
			Profile:    *profile,
		}
		if err := s.characterRepo.UpsertProfile(ctx, doc); err != nil {
			return summary, fmt.Errorf("save profile for %s: %w", character.Name, err)
		}

		profiles = append(profiles, *profile)
		summary.Processed++
	}

	if len(profiles) > 0 {
		s.writeArtifact(ctx, novelID, "character_profiles.json", profiles)
	}

	log.Info().
		Str("novel_id", novelID).
		Int("total", summary.Total).
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("主角档案阶段完成")

	return summary, nil
}

// GetCharacterProfiles 获取小说的主角档案（按得分倒序）
func (s *trailerService) GetCharacterProfiles(ctx context.Context, novelID string) ([]*model.CharacterProfile, error) {
	return s.characterRepo.FindProfilesByNovelID(ctx, novelID)
}
