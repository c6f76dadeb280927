package trailertools

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// CleanJSONContent 清理 LLM 返回的 JSON 内容
// 移除 markdown 代码块标记与首尾多余文本
func CleanJSONContent(content string) string {
	content = strings.TrimSpace(content)

	// 移除 markdown 代码块标记（```json ... ``` 或 ``` ... ```）
	markdownPattern := regexp.MustCompile(`(?s)^\s*` + "```" + `(?:json)?\s*\n(.*?)\n\s*` + "```" + `\s*$`)
	if matches := markdownPattern.FindStringSubmatch(content); len(matches) > 1 {
		content = matches[1]
	}

	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// SchemaError 结构化输出不符合 schema 时的错误
// 保留原始返回内容用于诊断（该单元的处理立即失败）
type SchemaError struct {
	Unit       string // 出错的处理单元（章节 ID / 节拍 ID 等）
	RawPayload string // 模型原始返回
	Err        error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema validation failed for %s: %v", e.Unit, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// UnmarshalStrict 清理后解析 JSON，失败时返回携带原始内容的 SchemaError
func UnmarshalStrict(unit, raw string, dest any) error {
	cleaned := CleanJSONContent(raw)
	if cleaned == "" {
		return &SchemaError{Unit: unit, RawPayload: raw, Err: fmt.Errorf("empty response")}
	}
	if err := json.Unmarshal([]byte(cleaned), dest); err != nil {
		return &SchemaError{Unit: unit, RawPayload: raw, Err: err}
	}
	return nil
}
