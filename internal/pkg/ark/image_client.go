package ark

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
)

// ImageConfig Ark 图片生成配置
type ImageConfig struct {
	APIKey  string // API Key（必需）
	BaseURL string // API 基础 URL（可选，默认: https://ark.cn-beijing.volces.com/api/v3）
	Model   string // 模型名称（可选，默认: doubao-seedream-3-0-t2i-250415）
}

// ImageConfigFromEnv 从环境变量创建 Ark 图片生成配置
// 支持的环境变量：
//   - ARK_API_KEY: API Key（必需）
//   - ARK_IMAGE_MODEL: 图片生成模型名称（可选）
//   - ARK_BASE_URL: API 基础 URL（可选）
func ImageConfigFromEnv() *ImageConfig {
	cfg := &ImageConfig{
		APIKey:  os.Getenv("ARK_API_KEY"),
		Model:   os.Getenv("ARK_IMAGE_MODEL"),
		BaseURL: os.Getenv("ARK_BASE_URL"),
	}
	if cfg.Model == "" {
		cfg.Model = "doubao-seedream-3-0-t2i-250415"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	}
	return cfg
}

// ImageClient Ark 图片生成客户端
// 关键帧出图入口：纯文生图走官方 SDK，携带角色参考图时走 HTTP
// （Go SDK 的 GenerateImages 不支持 image 输入，参考图请求直接调 /images/generations）
type ImageClient struct {
	client  *arkruntime.Client
	model   string
	baseURL string
	apiKey  string
}

// NewImageClient 创建 Ark 图片生成客户端
func NewImageClient(cfg *ImageConfig) (*ImageClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ARK_API_KEY is required")
	}

	var opts []arkruntime.ConfigOption
	if cfg.BaseURL != "" {
		opts = append(opts, arkruntime.WithBaseUrl(cfg.BaseURL))
	}

	return &ImageClient{
		client:  arkruntime.NewClientWithApiKey(cfg.APIKey, opts...),
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}, nil
}

// SizeForAspectRatio 把画幅比例映射为 Ark 支持的分辨率
func SizeForAspectRatio(aspectRatio string) string {
	switch aspectRatio {
	case "16:9":
		return "1280x720"
	case "1:1":
		return "1024x1024"
	case "9:16", "":
		return "720x1280"
	default:
		return "720x1280"
	}
}

// GenerateImage 纯文生图（官方 SDK）
func (c *ImageClient) GenerateImage(ctx context.Context, prompt string, size string, watermark bool) ([]byte, error) {
	if size == "" {
		size = "720x1280"
	}
	responseFormat := "b64_json"

	input := model.GenerateImagesRequest{
		Model:          c.model,
		Prompt:         prompt,
		Size:           &size,
		ResponseFormat: &responseFormat,
		Watermark:      &watermark,
	}

	output, err := c.client.GenerateImages(ctx, input)
	if err != nil {
		log.Error().Err(err).Msg("failed to call Ark GenerateImages API")
		return nil, fmt.Errorf("Ark GenerateImages API call failed: %w", err)
	}

	if len(output.Data) == 0 {
		return nil, fmt.Errorf("no image data in response")
	}
	first := output.Data[0]
	if first.B64Json == nil {
		return nil, fmt.Errorf("no b64_json in response data")
	}

	imageData, err := base64.StdEncoding.DecodeString(*first.B64Json)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image data: %w", err)
	}
	return imageData, nil
}

// GenerateImageWithReferences 带角色参考图的图生图（HTTP 直调）
// 参考图以 data URL 数组随请求提交，模型保持角色外观与参考图一致
func (c *ImageClient) GenerateImageWithReferences(
	ctx context.Context,
	prompt string,
	referenceImages [][]byte,
	size string,
) ([]byte, error) {
	if size == "" {
		size = "720x1280"
	}

	refs := make([]string, 0, len(referenceImages))
	for _, img := range referenceImages {
		refs = append(refs, ConvertImageToDataURL(img, "image/png"))
	}

	requestBody := map[string]interface{}{
		"model":           c.model,
		"prompt":          prompt,
		"image":           refs,
		"size":            size,
		"response_format": "b64_json",
		"watermark":       false,
	}
	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	baseURL := strings.TrimSuffix(c.baseURL, "/")
	apiURL := fmt.Sprintf("%s/images/generations", baseURL)

	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	httpClient := &http.Client{Timeout: 5 * time.Minute}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Error().
			Int("status_code", resp.StatusCode).
			Str("response_body", string(body)).
			Msg("Ark 图生图请求失败")
		return nil, fmt.Errorf("API request failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Data) == 0 || apiResp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("no image data in response")
	}

	imageData, err := base64.StdEncoding.DecodeString(apiResp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image data: %w", err)
	}
	return imageData, nil
}
