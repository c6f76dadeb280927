package trailer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	model "novel2trailer/internal/model/trailer"
	"novel2trailer/internal/pkg/trailertools"
)

// DeriveKeyframes 逐节拍派生关键帧并拼装整条计划
// 单节拍失败或无可解析场景只降级该节拍，整批继续；
// 全部节拍都颗粒无收时才整阶段失败。风格统一在所有派生尝试结束后才执行
func (s *trailerService) DeriveKeyframes(ctx context.Context, novelID string) (*StageSummary, error) {
	exists, err := s.keyframeRepo.PlanExists(ctx, novelID, model.PlanStageDerived)
	if err != nil {
		return nil, fmt.Errorf("check keyframe plan existence: %w", err)
	}
	if exists {
		log.Info().Str("novel_id", novelID).Msg("关键帧计划已存在，跳过")
		return &StageSummary{Skipped: 1}, nil
	}

	script, err := s.GetTrailerScript(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("failed to find trailer script: %w", err)
	}

	_, index, err := s.loadSceneIndex(ctx, novelID)
	if err != nil {
		return nil, err
	}

	summary := &StageSummary{Total: len(script.Beats)}
	var beatResults []trailertools.BeatKeyframes

	for _, beat := range script.Beats {
		bk, err := s.kfDeriver.DeriveBeatKeyframes(ctx, beat, index)
		if err != nil {
			summary.Failed++
			log.Error().Err(err).Str("beat_id", beat.BeatID).Msg("节拍关键帧派生失败，跳过该节拍")
			continue
		}
		if len(bk.Keyframes) == 0 {
			summary.Skipped++
			log.Warn().Str("beat_id", beat.BeatID).Msg("节拍未产出关键帧，跳过该节拍")
			continue
		}
		beatResults = append(beatResults, *bk)
		summary.Processed++
	}

	plan := trailertools.AssembleKeyframePlan(novelID, script.Title, beatResults)
	if len(plan.Keyframes) == 0 {
		return summary, fmt.Errorf("no keyframes derived for novel %s", novelID)
	}

	doc := &model.KeyframePlanDoc{
		NovelID: novelID,
		Stage:   model.PlanStageDerived,
		Plan:    *plan,
	}
	if err := s.keyframeRepo.UpsertPlan(ctx, doc); err != nil {
		return summary, fmt.Errorf("save keyframe plan: %w", err)
	}

	s.writeArtifact(ctx, novelID, "keyframe_plan.json", plan)

	log.Info().
		Str("novel_id", novelID).
		Int("beats", len(beatResults)).
		Int("keyframes", len(plan.Keyframes)).
		Msg("关键帧派生阶段完成")

	return summary, nil
}

// GetKeyframePlan 获取某阶段的关键帧计划
func (s *trailerService) GetKeyframePlan(ctx context.Context, novelID string, stage model.PlanStage) (*trailertools.KeyframePlan, error) {
	doc, err := s.keyframeRepo.FindPlan(ctx, novelID, stage)
	if err != nil {
		return nil, err
	}
	return &doc.Plan, nil
}

// ApplyStyle 合成风格指南并整批重写关键帧 prompt
// 指南一次成型后不可变；单帧重写失败保留原 prompt，不中断整批
func (s *trailerService) ApplyStyle(ctx context.Context, novelID string) (*StageSummary, error) {
	plan, err := s.GetKeyframePlan(ctx, novelID, model.PlanStageDerived)
	if err != nil {
		return nil, fmt.Errorf("failed to find derived keyframe plan: %w", err)
	}

	// 世界观与主角档案是增强输入，缺失不阻塞
	var worldProfile *trailertools.WorldProfile
	if wp, err := s.GetWorldProfile(ctx, novelID); err == nil {
		worldProfile = wp
	} else {
		log.Warn().Str("novel_id", novelID).Msg("世界观档案缺失，风格合成仅依据关键帧")
	}

	var profiles []trailertools.CharacterBaseProfile
	if docs, err := s.characterRepo.FindProfilesByNovelID(ctx, novelID); err == nil {
		for _, doc := range docs {
			profiles = append(profiles, doc.Profile)
		}
	}

	guide, err := s.styleBuilder.BuildStyleGuide(ctx, plan, worldProfile, profiles)
	if err != nil {
		return nil, fmt.Errorf("build style guide: %w", err)
	}

	guideDoc := &model.StyleGuideDoc{
		NovelID: novelID,
		Guide:   *guide,
	}
	if err := s.keyframeRepo.UpsertStyleGuide(ctx, guideDoc); err != nil {
		return nil, fmt.Errorf("save style guide: %w", err)
	}

	styled, err := s.promptRewriter.RewritePlan(ctx, plan, guide)
	if err != nil {
		return nil, fmt.Errorf("rewrite keyframe plan: %w", err)
	}

	styledDoc := &model.KeyframePlanDoc{
		NovelID: novelID,
		Stage:   model.PlanStageStyled,
		Plan:    *styled,
	}
	if err := s.keyframeRepo.UpsertPlan(ctx, styledDoc); err != nil {
		return nil, fmt.Errorf("save styled keyframe plan: %w", err)
	}

	s.writeArtifact(ctx, novelID, "keyframe_plan_styled.json", styled)

	log.Info().
		Str("novel_id", novelID).
		Int("keyframes", len(styled.Keyframes)).
		Int("characters", len(guide.Characters)).
		Msg("风格统一阶段完成")

	return &StageSummary{
		Total:     len(plan.Keyframes),
		Processed: len(styled.Keyframes),
	}, nil
}
