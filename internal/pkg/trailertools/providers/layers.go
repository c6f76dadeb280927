package providers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"novel2trailer/internal/pkg/layers"
	"novel2trailer/internal/pkg/trailertools"
)

// LayerServiceProvider 图层分解提供者（ComfyUI 部署的分层工作流）
// 实现了 trailertools.LayerProvider 接口
type LayerServiceProvider struct {
	client *layers.Client
}

// NewLayerServiceProvider 创建图层分解提供者
// 从环境变量读取配置，创建 layers.Client
func NewLayerServiceProvider() (trailertools.LayerProvider, error) {
	config := layers.ConfigFromEnv()
	return &LayerServiceProvider{
		client: layers.NewClient(config),
	}, nil
}

// DecomposeLayers 分解图片为有序图层
func (p *LayerServiceProvider) DecomposeLayers(
	ctx context.Context,
	imageData []byte,
	numLayers int,
) ([]trailertools.ImageLayer, error) {
	decomposed, err := p.client.Decompose(ctx, imageData, numLayers)
	if err != nil {
		return nil, fmt.Errorf("decompose layers: %w", err)
	}

	result := make([]trailertools.ImageLayer, 0, len(decomposed))
	for _, l := range decomposed {
		result = append(result, trailertools.ImageLayer{
			Index: l.Index,
			URL:   l.URL,
		})
	}

	log.Info().
		Int("layers", len(result)).
		Msg("图层分解成功")
	return result, nil
}
