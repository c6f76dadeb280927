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
)

// 预告片片段生成走 image-to-video：
// 以关键帧图为首帧种子，生成不超过 MaxClipDurationSec 的短片段。
// Go SDK 没有 content_generation.tasks 的 API，创建/查询任务直接走 HTTP。

// MaxClipDurationSec 单个片段的最大时长（秒）
const MaxClipDurationSec = 8

// VideoConfig Ark 视频生成配置
type VideoConfig struct {
	APIKey  string // API Key（必需）
	BaseURL string // API 基础 URL（可选，默认: https://ark.cn-beijing.volces.com/api/v3）
	Model   string // 模型名称（可选，默认: doubao-seedance-1-0-lite-i2v-250428）
}

// VideoConfigFromEnv 从环境变量创建 Ark 视频生成配置
// 支持的环境变量：
//   - ARK_API_KEY: API Key（必需）
//   - ARK_VIDEO_MODEL: 视频生成模型名称（可选）
//   - ARK_BASE_URL: API 基础 URL（可选）
func VideoConfigFromEnv() *VideoConfig {
	cfg := &VideoConfig{
		APIKey:  os.Getenv("ARK_API_KEY"),
		Model:   os.Getenv("ARK_VIDEO_MODEL"),
		BaseURL: os.Getenv("ARK_BASE_URL"),
	}
	if cfg.Model == "" {
		cfg.Model = "doubao-seedance-1-0-lite-i2v-250428"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	}
	return cfg
}

// VideoClient Ark 视频生成客户端
type VideoClient struct {
	model   string
	baseURL string
	apiKey  string
}

// NewVideoClient 创建 Ark 视频生成客户端
func NewVideoClient(cfg *VideoConfig) (*VideoClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ARK_API_KEY is required")
	}
	return &VideoClient{
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}, nil
}

// GenerateVideoFromImage 从首帧图生成视频片段（同步等待）
//
// 流程：
//  1. POST /contents/generations/tasks 提交任务，拿到 task_id
//  2. 轮询任务状态直到 succeeded / failed / 超时
//  3. 下载视频数据返回
//
// Args:
//   - ctx: 上下文（取消在轮询间隙协作式生效）
//   - imageDataURL: 首帧图的 data URL（data:image/png;base64,...），为空则纯文生视频
//   - duration: 片段时长（秒，超过 MaxClipDurationSec 会被钳到上限）
//   - prompt: 视频生成提示词
func (c *VideoClient) GenerateVideoFromImage(ctx context.Context, imageDataURL string, duration int, prompt string) ([]byte, error) {
	if duration > MaxClipDurationSec {
		log.Warn().Int("original", duration).Int("limited", MaxClipDurationSec).
			Msg("片段时长超过上限，已钳制")
		duration = MaxClipDurationSec
	}
	if duration <= 0 {
		duration = MaxClipDurationSec
	}

	if prompt == "" {
		prompt = "画面有明显的动态效果，镜头缓慢推进，人物有自然的动作和表情变化，背景有轻微的运动感，整体画面流畅自然，动作幅度适中"
	}

	taskID, err := c.createVideoTask(ctx, imageDataURL, prompt, duration, "9:16")
	if err != nil {
		return nil, fmt.Errorf("failed to create video task: %w", err)
	}
	log.Info().Str("task_id", taskID).Msg("视频生成任务提交成功")

	maxWaitTime := 30 * time.Minute
	pollInterval := 5 * time.Second
	startTime := time.Now()

	for {
		if time.Since(startTime) > maxWaitTime {
			return nil, fmt.Errorf("video generation timeout after %v", maxWaitTime)
		}

		status, videoURL, err := c.getTaskStatus(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to get task status: %w", err)
		}

		switch status {
		case "succeeded", "completed":
			if videoURL == "" {
				return nil, fmt.Errorf("video URL is empty")
			}
			videoData, err := c.downloadVideo(ctx, videoURL)
			if err != nil {
				return nil, fmt.Errorf("failed to download video: %w", err)
			}
			log.Info().Str("task_id", taskID).Int("size", len(videoData)).Msg("视频片段生成完成")
			return videoData, nil
		case "failed":
			return nil, fmt.Errorf("video generation task failed: task_id=%s", taskID)
		}

		log.Debug().Str("task_id", taskID).Str("status", status).Msg("视频生成中，继续等待")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// createVideoTask 创建视频生成任务
// 参考官方文档: https://www.volcengine.com/docs/82379/1520757
func (c *VideoClient) createVideoTask(ctx context.Context, imageDataURL string, prompt string, duration int, ratio string) (string, error) {
	content := []map[string]interface{}{
		{"type": "text", "text": prompt},
	}
	if imageDataURL != "" {
		content = append(content, map[string]interface{}{
			"type": "image_url",
			"image_url": map[string]interface{}{
				"url": imageDataURL,
			},
		})
	}

	requestBody := map[string]interface{}{
		"model":     c.model,
		"content":   content,
		"ratio":     ratio,
		"duration":  duration,
		"watermark": false,
	}
	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("marshal request body: %w", err)
	}

	baseURL := strings.TrimSuffix(c.baseURL, "/")
	apiURL := fmt.Sprintf("%s/contents/generations/tasks", baseURL)

	log.Debug().
		Str("api_url", apiURL).
		Str("model", c.model).
		Int("duration", duration).
		Msg("创建视频生成任务")

	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	// 服务端要解码随请求提交的 base64 图片，提交可能较慢
	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Error().
			Int("status_code", resp.StatusCode).
			Str("url", apiURL).
			Str("response_body", string(body)).
			Msg("创建视频任务失败")
		return "", fmt.Errorf("API request failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.ID == "" {
		return "", fmt.Errorf("task ID is empty in response")
	}
	return apiResp.ID, nil
}

// getTaskStatus 查询任务状态
// 参考官方文档: https://www.volcengine.com/docs/82379/1521309
func (c *VideoClient) getTaskStatus(ctx context.Context, taskID string) (status string, videoURL string, err error) {
	baseURL := strings.TrimSuffix(c.baseURL, "/")
	apiURL := fmt.Sprintf("%s/contents/generations/tasks/%s", baseURL, taskID)

	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Error().
			Int("status_code", resp.StatusCode).
			Str("task_id", taskID).
			Str("response_body", string(body)).
			Msg("查询任务状态失败")
		return "", "", fmt.Errorf("API request failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Status  string `json:"status"`
		Content struct {
			VideoURL string `json:"video_url"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", "", fmt.Errorf("decode response: %w", err)
	}
	return apiResp.Status, apiResp.Content.VideoURL, nil
}

// downloadVideo 下载视频
func (c *VideoClient) downloadVideo(ctx context.Context, videoURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", videoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download video: status code %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// ConvertImageToDataURL 将图片数据转换为 data URL
func ConvertImageToDataURL(imageData []byte, mimeType string) string {
	base64Data := base64.StdEncoding.EncodeToString(imageData)
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64Data)
}
