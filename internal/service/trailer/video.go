package trailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	model "novel2trailer/internal/model/trailer"
	"novel2trailer/internal/pkg/ark"
	"novel2trailer/internal/pkg/ffmpeg"
	"novel2trailer/internal/pkg/trailertools"
)

// GenerateKeyframeVideos 以关键帧图为首帧生成短视频片段
// 片段时长取节拍建议时长并收口到单片段上限；单帧失败计数不中断
func (s *trailerService) GenerateKeyframeVideos(ctx context.Context, novelID string) (*StageSummary, error) {
	if s.videoProvider == nil {
		return nil, fmt.Errorf("video provider is not configured")
	}

	plan, err := s.GetKeyframePlan(ctx, novelID, model.PlanStageStyled)
	if err != nil {
		return nil, fmt.Errorf("failed to find styled keyframe plan: %w", err)
	}

	var globalStyle string
	if guideDoc, err := s.keyframeRepo.FindStyleGuide(ctx, novelID); err == nil {
		globalStyle = guideDoc.Guide.GlobalStyle.RenderingStyle
	}

	summary := &StageSummary{Total: len(plan.Keyframes)}

	for _, kf := range plan.Keyframes {
		exists, err := s.assetRepo.Exists(ctx, novelID, model.AssetKeyframeVideo, kf.KFID)
		if err != nil {
			return summary, fmt.Errorf("check video existence for %s: %w", kf.KFID, err)
		}
		if exists {
			summary.Skipped++
			log.Info().Str("kf_id", kf.KFID).Msg("关键帧片段已存在，跳过")
			continue
		}

		seedImage, err := s.loadKeyframeImage(ctx, novelID, kf.KFID)
		if err != nil {
			summary.Failed++
			log.Error().Err(err).Str("kf_id", kf.KFID).Msg("关键帧图缺失，片段生成跳过")
			continue
		}

		if err := s.genLimiter.Wait(ctx); err != nil {
			return summary, err
		}

		duration := clipDuration(kf.SuggestedDurationSec)
		prompt := buildMotionPrompt(kf, globalStyle)

		videoData, err := s.videoProvider.GenerateClip(ctx, prompt, seedImage, duration)
		if err != nil {
			summary.Failed++
			log.Error().Err(err).Str("kf_id", kf.KFID).Msg("关键帧片段生成失败")
			continue
		}

		key := assetKey(novelID, "clips", kf.KFID+".mp4")
		url, err := s.storage.Upload(ctx, key, bytes.NewReader(videoData), "video/mp4")
		if err != nil {
			return summary, fmt.Errorf("upload clip %s: %w", kf.KFID, err)
		}

		asset := &model.TrailerAsset{
			NovelID:     novelID,
			Kind:        model.AssetKeyframeVideo,
			RefID:       kf.KFID,
			StorageKey:  key,
			URL:         url,
			ContentType: "video/mp4",
			SizeBytes:   int64(len(videoData)),
			DurationSec: float64(duration),
		}
		if err := s.assetRepo.Upsert(ctx, asset); err != nil {
			return summary, fmt.Errorf("register clip asset %s: %w", kf.KFID, err)
		}

		summary.Processed++
		log.Info().Str("kf_id", kf.KFID).Int("duration", duration).Msg("关键帧片段生成完成")
	}

	log.Info().
		Str("novel_id", novelID).
		Int("total", summary.Total).
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("关键帧视频阶段完成")

	return summary, nil
}

// clipDuration 把建议时长收口为合法的片段秒数
func clipDuration(suggested float64) int {
	duration := int(suggested + 0.5)
	if duration < 1 {
		duration = 1
	}
	if duration > ark.MaxClipDurationSec {
		duration = ark.MaxClipDurationSec
	}
	return duration
}

// buildMotionPrompt 视频提示词：动作 + 镜头 + 全局渲染风格
func buildMotionPrompt(kf trailertools.Keyframe, globalStyle string) string {
	var parts []string
	if kf.Action != "" {
		parts = append(parts, kf.Action)
	}
	if kf.CameraAngle != "" {
		parts = append(parts, "camera: "+kf.CameraAngle)
	}
	parts = append(parts, "subtle natural motion, no abrupt cuts")
	if globalStyle != "" {
		parts = append(parts, globalStyle)
	}
	return strings.Join(parts, ". ")
}

// loadKeyframeImage 下载某关键帧的静帧图
func (s *trailerService) loadKeyframeImage(ctx context.Context, novelID, kfID string) ([]byte, error) {
	asset, err := s.assetRepo.Find(ctx, novelID, model.AssetKeyframeImage, kfID)
	if err != nil {
		return nil, err
	}
	rc, err := s.storage.Download(ctx, asset.StorageKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ConcatFinalVideo 按关键帧计划顺序拼接成片
// 每个片段先标准化分辨率帧率，有台词的叠加 drawtext，最后 concat；
// 缺视频片段的关键帧用静帧推近兜底，保证成片完整
func (s *trailerService) ConcatFinalVideo(ctx context.Context, novelID string) (*model.TrailerAsset, error) {
	if s.ffmpeg == nil {
		return nil, fmt.Errorf("ffmpeg client is not configured")
	}

	plan, err := s.GetKeyframePlan(ctx, novelID, model.PlanStageStyled)
	if err != nil {
		return nil, fmt.Errorf("failed to find styled keyframe plan: %w", err)
	}
	if len(plan.Keyframes) == 0 {
		return nil, fmt.Errorf("styled keyframe plan for %s is empty", novelID)
	}

	workDir := s.cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	tempDir, err := os.MkdirTemp(workDir, "concat_"+novelID+"_")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	width, height, fps := s.videoDimensions()

	var clipPaths []string
	for _, kf := range plan.Keyframes {
		rawPath, err := s.materializeClip(ctx, novelID, kf, tempDir, width, height, fps)
		if err != nil {
			return nil, fmt.Errorf("materialize clip for %s: %w", kf.KFID, err)
		}

		stdPath := filepath.Join(tempDir, kf.KFID+"_std.mp4")
		if err := s.ffmpeg.StandardizeVideo(ctx, rawPath, stdPath, width, height, fps); err != nil {
			return nil, fmt.Errorf("standardize clip %s: %w", kf.KFID, err)
		}

		finalPath := stdPath
		if strings.TrimSpace(kf.DialogueOrText) != "" {
			overlayPath := filepath.Join(tempDir, kf.KFID+"_text.mp4")
			if err := s.ffmpeg.OverlayText(ctx, stdPath, overlayPath, kf.DialogueOrText, s.cfg.FontFile); err != nil {
				return nil, fmt.Errorf("overlay text on clip %s: %w", kf.KFID, err)
			}
			finalPath = overlayPath
		}

		clipPaths = append(clipPaths, finalPath)
	}

	outputPath := filepath.Join(tempDir, "trailer.mp4")
	if err := s.ffmpeg.ConcatVideos(ctx, clipPaths, outputPath); err != nil {
		return nil, fmt.Errorf("concat final video: %w", err)
	}

	finalData, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("read final video: %w", err)
	}

	info, err := s.ffmpeg.GetVideoInfo(ctx, outputPath)
	if err != nil {
		log.Warn().Err(err).Msg("成片信息探测失败")
		info = &ffmpeg.VideoInfo{}
	}

	key := assetKey(novelID, "final", "trailer.mp4")
	url, err := s.storage.Upload(ctx, key, bytes.NewReader(finalData), "video/mp4")
	if err != nil {
		return nil, fmt.Errorf("upload final video: %w", err)
	}

	asset := &model.TrailerAsset{
		NovelID:     novelID,
		Kind:        model.AssetFinalVideo,
		RefID:       "trailer",
		StorageKey:  key,
		URL:         url,
		ContentType: "video/mp4",
		SizeBytes:   int64(len(finalData)),
		DurationSec: info.Duration,
	}
	if err := s.assetRepo.Upsert(ctx, asset); err != nil {
		return nil, fmt.Errorf("register final video asset: %w", err)
	}

	log.Info().
		Str("novel_id", novelID).
		Int("clips", len(clipPaths)).
		Float64("duration", info.Duration).
		Msg("预告片成片拼接完成")

	return asset, nil
}

// materializeClip 把关键帧的片段落到本地文件；无视频片段时用静帧兜底
func (s *trailerService) materializeClip(ctx context.Context, novelID string, kf trailertools.Keyframe, tempDir string, width, height, fps int) (string, error) {
	if asset, err := s.assetRepo.Find(ctx, novelID, model.AssetKeyframeVideo, kf.KFID); err == nil {
		path := filepath.Join(tempDir, kf.KFID+"_raw.mp4")
		if err := s.downloadToFile(ctx, asset.StorageKey, path); err != nil {
			return "", err
		}
		return path, nil
	}

	// 视频片段缺失，退回静帧推近
	log.Warn().Str("kf_id", kf.KFID).Msg("关键帧无视频片段，使用静帧兜底")
	imageData, err := s.loadKeyframeImage(ctx, novelID, kf.KFID)
	if err != nil {
		return "", fmt.Errorf("no clip and no image for %s: %w", kf.KFID, err)
	}

	imagePath := filepath.Join(tempDir, kf.KFID+".png")
	if err := os.WriteFile(imagePath, imageData, 0o644); err != nil {
		return "", err
	}

	clipPath := filepath.Join(tempDir, kf.KFID+"_raw.mp4")
	duration := float64(clipDuration(kf.SuggestedDurationSec))
	if err := s.ffmpeg.CreateImageVideo(ctx, imagePath, clipPath, duration, width, height, fps); err != nil {
		return "", err
	}
	return clipPath, nil
}

// downloadToFile 把存储对象落到本地文件
func (s *trailerService) downloadToFile(ctx context.Context, key, path string) error {
	rc, err := s.storage.Download(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, rc)
	return err
}

// videoDimensions 成片分辨率与帧率（缺省竖屏 720x1280@30）
func (s *trailerService) videoDimensions() (width, height, fps int) {
	width, height, fps = s.cfg.VideoWidth, s.cfg.VideoHeight, s.cfg.VideoFPS
	if width <= 0 || height <= 0 {
		width, height = 720, 1280
	}
	if fps <= 0 {
		fps = 30
	}
	return width, height, fps
}
