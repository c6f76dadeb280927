package layers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// 图层分解：把关键帧图送入 ComfyUI 的分层工作流，
// 输出前景/中景/背景等有序图层，供后期视差动效使用
//
// 流程：上传图片 → 改写工作流输入 → 提交 → 轮询 history → 收集有序输出

// Layer 分解出的一个图层
type Layer struct {
	Index     int    // 层序（0 为最底层）
	Filename  string // 服务端输出文件名
	Subfolder string
	Type      string
	URL       string // /api/view 下载地址
}

// Client 图层分解服务客户端
type Client struct {
	config      *Config
	apiURL      string
	fallbackURL string
	apiRoot     string
	httpClient  *http.Client
}

// NewClient 创建图层分解客户端
func NewClient(config *Config) *Client {
	apiURL := normalizePromptURL(config.APIURL)
	return &Client{
		config:      config,
		apiURL:      apiURL,
		fallbackURL: fallbackPromptURLOf(apiURL),
		apiRoot:     apiRootOf(apiURL),
		httpClient:  &http.Client{Timeout: config.Timeout},
	}
}

// Decompose 分解单张图片为 numLayers 个有序图层（同步等待）
func (c *Client) Decompose(ctx context.Context, imageData []byte, numLayers int) ([]Layer, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("image data is empty")
	}
	if numLayers <= 0 {
		numLayers = 3
	}

	uploadName := fmt.Sprintf("kf_%s.png", uuid.NewString())
	if err := c.uploadImage(ctx, uploadName, imageData); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	workflow, err := LoadWorkflowJSON(c.config.WorkflowJSONPath)
	if err != nil {
		return nil, err
	}
	workflow = SetInputImage(workflow, uploadName)
	workflow = SetLayerCount(workflow, numLayers)

	promptID, err := c.submitWorkflow(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("submit workflow: %w", err)
	}

	outputs, err := c.waitForOutputs(ctx, promptID)
	if err != nil {
		return nil, fmt.Errorf("wait for outputs: %w", err)
	}
	if len(outputs) < numLayers {
		log.Warn().
			Int("want", numLayers).
			Int("got", len(outputs)).
			Str("prompt_id", promptID).
			Msg("分解出的图层数少于预期")
	}

	result := make([]Layer, 0, len(outputs))
	for i, out := range outputs {
		params := fmt.Sprintf("filename=%s&type=%s", out.Filename, out.Type)
		if out.Subfolder != "" {
			params += "&subfolder=" + out.Subfolder
		}
		result = append(result, Layer{
			Index:     i,
			Filename:  out.Filename,
			Subfolder: out.Subfolder,
			Type:      out.Type,
			URL:       fmt.Sprintf("%s/view?%s", c.apiRoot, params),
		})
	}

	log.Info().
		Str("prompt_id", promptID).
		Int("layers", len(result)).
		Msg("图层分解完成")
	return result, nil
}

// DownloadLayer 下载单个图层
func (c *Client) DownloadLayer(ctx context.Context, layer Layer) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", layer.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download layer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("下载图层失败，状态码: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// uploadImage 上传输入图片（POST /upload/image，multipart）
func (c *Client) uploadImage(ctx context.Context, name string, data []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", name)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}
	if err := mw.WriteField("overwrite", "true"); err != nil {
		return fmt.Errorf("write form field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	uploadURL := fmt.Sprintf("%s/upload/image", c.apiRoot)
	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("上传失败，状态码: %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}

// submitWorkflow 提交工作流，404/405 时回退到备用 /prompt 端点
func (c *Client) submitWorkflow(ctx context.Context, workflow map[string]interface{}) (string, error) {
	payload := map[string]interface{}{
		"prompt":    workflow,
		"client_id": "novel2trailer",
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal workflow payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(c.config.RetryDelay)
		}

		promptID, status, err := c.postWorkflow(ctx, c.apiURL, payloadBytes)
		if err == nil {
			return promptID, nil
		}
		lastErr = err

		if status == http.StatusNotFound || status == http.StatusMethodNotAllowed {
			log.Warn().Str("fallback_url", c.fallbackURL).Msg("提交端点不可用，尝试备用端点")
			promptID, _, err = c.postWorkflow(ctx, c.fallbackURL, payloadBytes)
			if err == nil {
				return promptID, nil
			}
			lastErr = err
		}
	}
	return "", lastErr
}

func (c *Client) postWorkflow(ctx context.Context, url string, payload []byte) (promptID string, status int, err error) {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, fmt.Errorf("提交失败，状态码: %d", resp.StatusCode)
	}

	var data struct {
		PromptID string `json:"prompt_id"`
	}
	if err := json.Unmarshal(body, &data); err != nil || data.PromptID == "" {
		return "", resp.StatusCode, fmt.Errorf("响应缺少 prompt_id: %s", string(body))
	}
	return data.PromptID, resp.StatusCode, nil
}

type outputImage struct {
	Filename  string
	Subfolder string
	Type      string
	nodeID    string
}

// waitForOutputs 轮询 history，收集全部输出图片（按节点 ID 排序保证层序稳定）
func (c *Client) waitForOutputs(ctx context.Context, promptID string) ([]outputImage, error) {
	url := fmt.Sprintf("%s/history/%s", c.apiRoot, promptID)

	endTime := time.Now().Add(c.config.MaxWait)
	for time.Now().Before(endTime) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.config.PollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Warn().Err(err).Msg("轮询历史接口异常")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			continue
		}

		var data map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			resp.Body.Close()
			continue
		}
		resp.Body.Close()

		outputs := parseHistoryOutputs(data, promptID)
		if len(outputs) > 0 {
			return outputs, nil
		}
	}
	return nil, fmt.Errorf("轮询等待超时，未获取到输出图层")
}

func parseHistoryOutputs(data map[string]interface{}, promptID string) []outputImage {
	var obj map[string]interface{}
	if val, ok := data[promptID].(map[string]interface{}); ok {
		obj = val
	} else if history, ok := data["history"].(map[string]interface{}); ok {
		if val, ok := history[promptID].(map[string]interface{}); ok {
			obj = val
		} else {
			for _, v := range history {
				if val, ok := v.(map[string]interface{}); ok {
					obj = val
					break
				}
			}
		}
	}
	if obj == nil {
		return nil
	}

	outputs, ok := obj["outputs"].(map[string]interface{})
	if !ok {
		return nil
	}

	var result []outputImage
	for nodeID, nodeVal := range outputs {
		node, ok := nodeVal.(map[string]interface{})
		if !ok {
			continue
		}
		images, ok := node["images"].([]interface{})
		if !ok {
			continue
		}
		for _, img := range images {
			imgMap, ok := img.(map[string]interface{})
			if !ok {
				continue
			}
			filename, _ := imgMap["filename"].(string)
			if filename == "" {
				continue
			}
			subfolder, _ := imgMap["subfolder"].(string)
			type_, _ := imgMap["type"].(string)
			if type_ == "" {
				type_ = "output"
			}
			result = append(result, outputImage{
				Filename:  filename,
				Subfolder: subfolder,
				Type:      type_,
				nodeID:    nodeID,
			})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].nodeID != result[j].nodeID {
			return result[i].nodeID < result[j].nodeID
		}
		return result[i].Filename < result[j].Filename
	})
	return result
}

// LoadWorkflowJSON 加载图层分解工作流 JSON 模板
func LoadWorkflowJSON(path string) (map[string]interface{}, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("工作流JSON不存在: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow JSON: %w", err)
	}

	var workflow map[string]interface{}
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("unmarshal workflow JSON: %w", err)
	}
	return workflow, nil
}

// SetInputImage 把工作流中 LoadImage 节点的输入替换为上传的文件名
func SetInputImage(workflow map[string]interface{}, imageName string) map[string]interface{} {
	wf := deepCopyWorkflow(workflow)
	for _, nodeVal := range wf {
		node, ok := nodeVal.(map[string]interface{})
		if !ok {
			continue
		}
		classType, _ := node["class_type"].(string)
		if classType != "LoadImage" {
			continue
		}
		if inputs, ok := node["inputs"].(map[string]interface{}); ok {
			inputs["image"] = imageName
		}
	}
	return wf
}

// SetLayerCount 设置分层节点的目标层数
// 按 _meta.title 包含 "Layer" 的节点识别，找不到时保持模板默认值
func SetLayerCount(workflow map[string]interface{}, numLayers int) map[string]interface{} {
	wf := deepCopyWorkflow(workflow)
	for _, nodeVal := range wf {
		node, ok := nodeVal.(map[string]interface{})
		if !ok {
			continue
		}
		meta, _ := node["_meta"].(map[string]interface{})
		title, _ := meta["title"].(string)
		if !strings.Contains(title, "Layer") {
			continue
		}
		if inputs, ok := node["inputs"].(map[string]interface{}); ok {
			if _, exists := inputs["num_layers"]; exists {
				inputs["num_layers"] = numLayers
			}
		}
	}
	return wf
}

func deepCopyWorkflow(workflow map[string]interface{}) map[string]interface{} {
	raw, err := json.Marshal(workflow)
	if err != nil {
		log.Warn().Err(err).Msg("深拷贝工作流失败")
		return workflow
	}
	var wf map[string]interface{}
	if err := json.Unmarshal(raw, &wf); err != nil {
		log.Warn().Err(err).Msg("反序列化工作流失败")
		return workflow
	}
	return wf
}
