package providers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"novel2trailer/internal/pkg/ark"
	"novel2trailer/internal/pkg/t2p"
	"novel2trailer/internal/pkg/trailertools"
)

// ArkImageProvider Ark 图片生成提供者
// 实现了 trailertools.ImageProvider 接口：
// 无参考图走官方 SDK 文生图，带角色参考图时走图生图
type ArkImageProvider struct {
	client *ark.ImageClient
}

// NewArkImageProvider 创建 Ark 图片生成提供者
// 从环境变量读取配置，创建 ark.ImageClient
func NewArkImageProvider() (trailertools.ImageProvider, error) {
	client, err := ark.NewImageClient(ark.ImageConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("create Ark Image client: %w", err)
	}
	return &ArkImageProvider{client: client}, nil
}

// GenerateImage 生成图片
func (p *ArkImageProvider) GenerateImage(
	ctx context.Context,
	prompt string,
	referenceImages [][]byte,
	aspectRatio string,
) ([]byte, error) {
	size := ark.SizeForAspectRatio(aspectRatio)

	var imageData []byte
	var err error
	if len(referenceImages) > 0 {
		imageData, err = p.client.GenerateImageWithReferences(ctx, prompt, referenceImages, size)
	} else {
		imageData, err = p.client.GenerateImage(ctx, prompt, size, false)
	}
	if err != nil {
		return nil, fmt.Errorf("Ark generate image: %w", err)
	}

	log.Info().
		Int("size", len(imageData)).
		Int("references", len(referenceImages)).
		Str("aspect_ratio", aspectRatio).
		Msg("Ark 图片生成成功")
	return imageData, nil
}

// T2PProvider T2P（火山引擎 Text-to-Picture）图片生成提供者
// 实现了 trailertools.ImageProvider 接口
// cv_process 接口不支持参考图输入，传入参考图时忽略并告警；
// 主要用于角色立绘生成（立绘本身就是后续出图的参考图来源）
type T2PProvider struct {
	client *t2p.Client
}

// NewT2PProvider 创建 T2P 提供者
// 从环境变量读取配置，创建 t2p.Client
func NewT2PProvider() (trailertools.ImageProvider, error) {
	client, err := t2p.NewClient(t2p.ConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("create T2P client: %w", err)
	}
	return &T2PProvider{client: client}, nil
}

// GenerateImage 生成图片
func (p *T2PProvider) GenerateImage(
	ctx context.Context,
	prompt string,
	referenceImages [][]byte,
	aspectRatio string,
) ([]byte, error) {
	if len(referenceImages) > 0 {
		log.Warn().Int("references", len(referenceImages)).
			Msg("T2P 不支持参考图输入，已忽略")
	}

	imageData, err := p.client.GeneratePortrait(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("T2P generate image: %w", err)
	}

	log.Info().
		Int("size", len(imageData)).
		Msg("T2P 图片生成成功")
	return imageData, nil
}
