package trailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	model "novel2trailer/internal/model/trailer"
	"novel2trailer/internal/pkg/trailertools"
)

// GeneratePortraits 为每个主角生成一张立绘
// 立绘是后续关键帧出图的参考图来源，保证角色跨帧长相一致
func (s *trailerService) GeneratePortraits(ctx context.Context, novelID string) (*StageSummary, error) {
	if s.portraitProvider == nil {
		return nil, fmt.Errorf("portrait provider is not configured")
	}

	profiles, err := s.characterRepo.FindProfilesByNovelID(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("failed to find character profiles: %w", err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("novel %s has no character profiles", novelID)
	}

	var worldProfile *trailertools.WorldProfile
	if wp, err := s.GetWorldProfile(ctx, novelID); err == nil {
		worldProfile = wp
	}

	summary := &StageSummary{Total: len(profiles)}

	for _, doc := range profiles {
		exists, err := s.assetRepo.Exists(ctx, novelID, model.AssetPortrait, doc.Name)
		if err != nil {
			return summary, fmt.Errorf("check portrait existence for %s: %w", doc.Name, err)
		}
		if exists {
			summary.Skipped++
			log.Info().Str("character", doc.Name).Msg("角色立绘已存在，跳过")
			continue
		}

		if err := s.genLimiter.Wait(ctx); err != nil {
			return summary, err
		}

		prompt := buildPortraitPrompt(&doc.Profile, worldProfile)
		imageData, err := s.portraitProvider.GenerateImage(ctx, prompt, nil, s.cfg.AspectRatio)
		if err != nil {
			summary.Failed++
			log.Error().Err(err).Str("character", doc.Name).Msg("角色立绘生成失败")
			continue
		}

		key := assetKey(novelID, "portraits", doc.Name+".png")
		url, err := s.storage.Upload(ctx, key, bytes.NewReader(imageData), "image/png")
		if err != nil {
			return summary, fmt.Errorf("upload portrait for %s: %w", doc.Name, err)
		}

		asset := &model.TrailerAsset{
			NovelID:     novelID,
			Kind:        model.AssetPortrait,
			RefID:       doc.Name,
			StorageKey:  key,
			URL:         url,
			ContentType: "image/png",
			SizeBytes:   int64(len(imageData)),
		}
		if err := s.assetRepo.Upsert(ctx, asset); err != nil {
			return summary, fmt.Errorf("register portrait asset for %s: %w", doc.Name, err)
		}

		summary.Processed++
		log.Info().Str("character", doc.Name).Int("bytes", len(imageData)).Msg("角色立绘生成完成")
	}

	return summary, nil
}

// buildPortraitPrompt 从基底特征与世界观档案拼立绘提示词
func buildPortraitPrompt(profile *trailertools.CharacterBaseProfile, world *trailertools.WorldProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Full-body character portrait of %s, standing, neutral pose, plain background.\n", profile.CharacterName)

	writePairs := func(label string, pairs map[string]string) {
		if len(pairs) == 0 {
			return
		}
		b.WriteString(label)
		b.WriteString(": ")
		first := true
		for _, k := range []string{"age_range", "body_type", "face", "hair", "style", "materials", "colours"} {
			if v, ok := pairs[k]; ok && v != "" {
				if !first {
					b.WriteString("; ")
				}
				fmt.Fprintf(&b, "%s %s", strings.ReplaceAll(k, "_", " "), v)
				first = false
			}
		}
		b.WriteString(".\n")
	}
	writePairs("Appearance", profile.CoreAppearance)
	writePairs("Outfit", profile.BaselineOutfit)

	if len(profile.TemperamentBaseline) > 0 {
		fmt.Fprintf(&b, "Temperament: %s.\n", strings.Join(profile.TemperamentBaseline, ", "))
	}
	if world != nil {
		if world.EraLabel != "" {
			fmt.Fprintf(&b, "Era: %s.\n", world.EraLabel)
		}
		if world.GlobalStyle != "" {
			fmt.Fprintf(&b, "Style: %s.\n", world.GlobalStyle)
		}
	}
	return b.String()
}

// GenerateKeyframeImages 为风格化后的每个关键帧生成静帧图
// 帧内角色的立绘作为参考图传入，保持人物一致性
func (s *trailerService) GenerateKeyframeImages(ctx context.Context, novelID string) (*StageSummary, error) {
	if s.imageProvider == nil {
		return nil, fmt.Errorf("image provider is not configured")
	}

	plan, err := s.GetKeyframePlan(ctx, novelID, model.PlanStageStyled)
	if err != nil {
		return nil, fmt.Errorf("failed to find styled keyframe plan: %w", err)
	}

	portraits := s.loadPortraits(ctx, novelID)
	summary := &StageSummary{Total: len(plan.Keyframes)}

	for _, kf := range plan.Keyframes {
		exists, err := s.assetRepo.Exists(ctx, novelID, model.AssetKeyframeImage, kf.KFID)
		if err != nil {
			return summary, fmt.Errorf("check image existence for %s: %w", kf.KFID, err)
		}
		if exists {
			summary.Skipped++
			log.Info().Str("kf_id", kf.KFID).Msg("关键帧图已存在，跳过")
			continue
		}

		if err := s.genLimiter.Wait(ctx); err != nil {
			return summary, err
		}

		var refs [][]byte
		for _, name := range kf.Characters {
			if data, ok := portraits[name]; ok {
				refs = append(refs, data)
			}
		}

		imageData, err := s.imageProvider.GenerateImage(ctx, kf.ImagePrompt, refs, s.cfg.AspectRatio)
		if err != nil {
			summary.Failed++
			log.Error().Err(err).Str("kf_id", kf.KFID).Msg("关键帧图生成失败")
			continue
		}

		key := assetKey(novelID, "keyframes", kf.KFID+".png")
		url, err := s.storage.Upload(ctx, key, bytes.NewReader(imageData), "image/png")
		if err != nil {
			return summary, fmt.Errorf("upload keyframe image %s: %w", kf.KFID, err)
		}

		asset := &model.TrailerAsset{
			NovelID:     novelID,
			Kind:        model.AssetKeyframeImage,
			RefID:       kf.KFID,
			StorageKey:  key,
			URL:         url,
			ContentType: "image/png",
			SizeBytes:   int64(len(imageData)),
		}
		if err := s.assetRepo.Upsert(ctx, asset); err != nil {
			return summary, fmt.Errorf("register keyframe image asset %s: %w", kf.KFID, err)
		}

		summary.Processed++
		log.Info().
			Str("kf_id", kf.KFID).
			Int("references", len(refs)).
			Msg("关键帧图生成完成")
	}

	log.Info().
		Str("novel_id", novelID).
		Int("total", summary.Total).
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("关键帧出图阶段完成")

	return summary, nil
}

// loadPortraits 下载全部立绘，按角色名索引（单个失败只告警）
func (s *trailerService) loadPortraits(ctx context.Context, novelID string) map[string][]byte {
	portraits := make(map[string][]byte)
	assets, err := s.assetRepo.FindByKind(ctx, novelID, model.AssetPortrait)
	if err != nil {
		log.Warn().Err(err).Msg("立绘清单读取失败，关键帧出图不带参考图")
		return portraits
	}
	for _, asset := range assets {
		rc, err := s.storage.Download(ctx, asset.StorageKey)
		if err != nil {
			log.Warn().Err(err).Str("character", asset.RefID).Msg("立绘下载失败")
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			log.Warn().Err(err).Str("character", asset.RefID).Msg("立绘读取失败")
			continue
		}
		portraits[asset.RefID] = data
	}
	return portraits
}

// DecomposeKeyframeLayers 将某个关键帧图分解为有序图层（用于运镜/视差后期）
func (s *trailerService) DecomposeKeyframeLayers(ctx context.Context, novelID, kfID string, numLayers int) ([]trailertools.ImageLayer, error) {
	if s.layerProvider == nil {
		return nil, fmt.Errorf("layer provider is not configured")
	}

	asset, err := s.assetRepo.Find(ctx, novelID, model.AssetKeyframeImage, kfID)
	if err != nil {
		return nil, fmt.Errorf("keyframe image %s not found: %w", kfID, err)
	}

	rc, err := s.storage.Download(ctx, asset.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("download keyframe image %s: %w", kfID, err)
	}
	defer rc.Close()

	imageData, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read keyframe image %s: %w", kfID, err)
	}

	decomposed, err := s.layerProvider.DecomposeLayers(ctx, imageData, numLayers)
	if err != nil {
		return nil, fmt.Errorf("decompose layers for %s: %w", kfID, err)
	}

	for _, layer := range decomposed {
		layerAsset := &model.TrailerAsset{
			NovelID: novelID,
			Kind:    model.AssetImageLayer,
			RefID:   fmt.Sprintf("%s:%d", kfID, layer.Index),
			URL:     layer.URL,
		}
		if err := s.assetRepo.Upsert(ctx, layerAsset); err != nil {
			log.Warn().Err(err).Str("kf_id", kfID).Int("layer", layer.Index).Msg("图层登记失败")
		}
	}

	return decomposed, nil
}
