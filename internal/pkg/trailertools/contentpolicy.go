package trailertools

import "strings"

// IsContentBlocked 判断错误是否为内容安全策略拦截
// 拦截对该单元是终态：不重试，回退到已有的最佳产物后继续整批
func IsContentBlocked(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "content policy") ||
		strings.Contains(msg, "blocked") ||
		strings.Contains(msg, "safety") ||
		strings.Contains(msg, "prohibited content")
}
