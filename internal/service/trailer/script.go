package trailer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	model "novel2trailer/internal/model/trailer"
	"novel2trailer/internal/pkg/trailertools"
)

// PlanTrailerScript 基于全书场景规划预告片节拍脚本
// 前置条件：场景抽取已完成（规划读取的是全量场景索引）
func (s *trailerService) PlanTrailerScript(ctx context.Context, novelID string) (*trailertools.TrailerScript, error) {
	exists, err := s.scriptRepo.Exists(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("check script existence: %w", err)
	}
	if exists {
		log.Info().Str("novel_id", novelID).Msg("预告片脚本已存在，返回既有产物")
		return s.GetTrailerScript(ctx, novelID)
	}

	novelEntity, err := s.novelRepo.FindByID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("failed to find novel: %w", err)
	}

	scenes, index, err := s.loadSceneIndex(ctx, novelID)
	if err != nil {
		return nil, err
	}

	req := trailertools.PlanRequest{
		NovelID:        novelID,
		Title:          novelEntity.Title,
		Platform:       s.cfg.Platform,
		MaxDurationSec: s.cfg.MaxDurationSec,
	}
	script, err := s.beatPlanner.PlanTrailerScript(ctx, req, scenes, index)
	if err != nil {
		return nil, fmt.Errorf("plan trailer script: %w", err)
	}

	doc := &model.TrailerScriptDoc{
		NovelID: novelID,
		Script:  *script,
	}
	if err := s.scriptRepo.Upsert(ctx, doc); err != nil {
		return nil, fmt.Errorf("save trailer script: %w", err)
	}

	s.writeArtifact(ctx, novelID, "trailer_script.json", script)

	return script, nil
}

// GetTrailerScript 获取小说的预告片脚本
func (s *trailerService) GetTrailerScript(ctx context.Context, novelID string) (*trailertools.TrailerScript, error) {
	doc, err := s.scriptRepo.FindByNovelID(ctx, novelID)
	if err != nil {
		return nil, err
	}
	return &doc.Script, nil
}
