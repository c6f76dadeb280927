package trailertools

import (
	"context"
)

// LLMProvider 定义了调用大模型的接口
// 具体的「如何调用大模型」由调用方通过实现此接口注入，方便单测和替换实现
type LLMProvider interface {
	// Generate 根据提示词生成文本
	//
	// Args:
	//   - ctx: 上下文
	//   - prompt: 提示词
	//
	// Returns:
	//   - text: 生成的文本
	//   - err: 错误信息
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageProvider 图片生成提供者接口
// 对应外部图片生成服务：generate(prompt, refs, aspect_ratio) → 图片字节
type ImageProvider interface {
	// GenerateImage 生成单张图片
	//
	// Args:
	//   - ctx: 上下文
	//   - prompt: 最终图片提示词（已含全局风格）
	//   - referenceImages: 参考图（角色立绘，可为 nil）
	//   - aspectRatio: 画幅比例，如 "9:16"
	//
	// Returns:
	//   - imageData: 图片二进制数据
	//   - err: 错误信息
	GenerateImage(ctx context.Context, prompt string, referenceImages [][]byte, aspectRatio string) ([]byte, error)
}

// VideoProvider 视频生成提供者接口
// 轮询/退避是提供者的内部事务，对调用方表现为一次阻塞调用
type VideoProvider interface {
	// GenerateClip 从种子图生成视频片段
	//
	// Args:
	//   - ctx: 上下文（取消在轮询间隙协作式生效）
	//   - prompt: 视频提示词
	//   - seedImage: 种子图字节（可为 nil，纯文生视频）
	//   - durationSec: 片段时长（秒，最大 8）
	//
	// Returns:
	//   - videoData: 视频二进制数据
	//   - err: 错误信息
	GenerateClip(ctx context.Context, prompt string, seedImage []byte, durationSec int) ([]byte, error)
}

// ImageLayer 图层分解结果中的一层
type ImageLayer struct {
	Index int    `json:"index"` // 层序（0 为最底层）
	URL   string `json:"url"`   // 该层图片的下载地址
}

// LayerProvider 图层分解提供者接口：decompose(image, n) → 有序图层
type LayerProvider interface {
	DecomposeLayers(ctx context.Context, imageData []byte, numLayers int) ([]ImageLayer, error)
}
