package layers

import (
	"net/url"
	"os"
	"strings"
	"time"
)

// Config 图层分解服务（ComfyUI 部署）配置
type Config struct {
	APIURL           string        // 工作流提交端点（如 http://127.0.0.1:8188/api/prompt）
	WorkflowJSONPath string        // 图层分解工作流 JSON 模板路径
	Timeout          time.Duration // 请求超时时间
	MaxRetries       int           // 提交最大重试次数
	RetryDelay       time.Duration // 重试延迟
	PollInterval     time.Duration // 轮询间隔
	MaxWait          time.Duration // 最大等待时间
}

// ConfigFromEnv 从环境变量创建图层分解配置
// 支持的环境变量：
//   - LAYERS_API_URL: 服务端点（可选，默认: http://127.0.0.1:8188/api/prompt）
//   - LAYERS_WORKFLOW_JSON: 工作流 JSON 模板路径（可选，默认: configs/layer_decompose.json）
func ConfigFromEnv() *Config {
	apiURL := os.Getenv("LAYERS_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8188/api/prompt"
	}

	workflowJSONPath := os.Getenv("LAYERS_WORKFLOW_JSON")
	if workflowJSONPath == "" {
		workflowJSONPath = "configs/layer_decompose.json"
	}

	return &Config{
		APIURL:           normalizePromptURL(apiURL),
		WorkflowJSONPath: workflowJSONPath,
		Timeout:          30 * time.Second,
		MaxRetries:       3,
		RetryDelay:       1 * time.Second,
		PollInterval:     2 * time.Second,
		MaxWait:          600 * time.Second,
	}
}

// normalizePromptURL 规范化工作流提交端点
// 兼容以下传入形式：
//  1. http://host:port → http://host:port/api/prompt
//  2. http://host:port/api → http://host:port/api/prompt
//  3. http://host:port/api/prompt → 原样使用
//  4. http://host:port/prompt → 原样使用（部分部署只暴露 /prompt）
func normalizePromptURL(urlStr string) string {
	base := strings.TrimSpace(urlStr)
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		base = "http://127.0.0.1:8188"
	}

	if strings.Contains(base, "/api/prompt") {
		return base
	}
	if strings.HasSuffix(base, "/prompt") && !strings.Contains(base, "/api") {
		return base
	}
	if strings.HasSuffix(base, "/api") {
		return base + "/prompt"
	}
	if strings.Contains(base, "/api") {
		parts := strings.Split(base, "/api")
		return strings.TrimSuffix(parts[0], "/") + "/api/prompt"
	}
	return base + "/api/prompt"
}

// apiRootOf 返回以 /api 结尾的基础前缀，用于 history/view/upload
func apiRootOf(promptURL string) string {
	base := strings.TrimSuffix(promptURL, "/")
	for _, marker := range []string{"/api/prompt", "/prompt", "/api"} {
		if strings.Contains(base, marker) {
			parts := strings.Split(base, marker)
			return strings.TrimSuffix(parts[0], "/") + "/api"
		}
	}
	return base + "/api"
}

// fallbackPromptURLOf 获取备用提交端点 /prompt
func fallbackPromptURLOf(promptURL string) string {
	root := strings.TrimSuffix(promptURL, "/")
	for _, marker := range []string{"/api/prompt", "/prompt", "/api"} {
		if strings.Contains(root, marker) {
			parts := strings.Split(root, marker)
			return strings.TrimSuffix(parts[0], "/") + "/prompt"
		}
	}
	return root + "/prompt"
}

// appendQueryParam 为 URL 追加查询参数
func appendQueryParam(urlStr, key, value string) string {
	if value == "" {
		return urlStr
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		sep := "&"
		if !strings.Contains(urlStr, "?") {
			sep = "?"
		}
		return urlStr + sep + key + "=" + url.QueryEscape(value)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
