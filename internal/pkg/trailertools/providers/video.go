package providers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"novel2trailer/internal/pkg/ark"
	"novel2trailer/internal/pkg/trailertools"
)

// ArkVideoProvider Ark 视频生成提供者
// 实现了 trailertools.VideoProvider 接口：
// 以关键帧图为首帧种子生成短片段，轮询与下载在客户端内部完成
type ArkVideoProvider struct {
	client *ark.VideoClient
}

// NewArkVideoProvider 创建 Ark 视频生成提供者
// 从环境变量读取配置，创建 ark.VideoClient
func NewArkVideoProvider() (trailertools.VideoProvider, error) {
	client, err := ark.NewVideoClient(ark.VideoConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("create Ark Video client: %w", err)
	}
	return &ArkVideoProvider{client: client}, nil
}

// GenerateClip 从种子图生成视频片段
func (p *ArkVideoProvider) GenerateClip(
	ctx context.Context,
	prompt string,
	seedImage []byte,
	durationSec int,
) ([]byte, error) {
	var imageDataURL string
	if len(seedImage) > 0 {
		imageDataURL = ark.ConvertImageToDataURL(seedImage, "image/png")
	}

	videoData, err := p.client.GenerateVideoFromImage(ctx, imageDataURL, durationSec, prompt)
	if err != nil {
		return nil, fmt.Errorf("Ark generate clip: %w", err)
	}

	log.Info().
		Int("duration", durationSec).
		Int("size", len(videoData)).
		Msg("Ark 视频片段生成成功")
	return videoData, nil
}
