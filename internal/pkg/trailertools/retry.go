package trailertools

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// 瞬时过载重试策略
// 外部生成服务偶发 503/overloaded 时按有界指数退避重试；
// 重试耗尽后返回最后一次错误，由调用方按「单元失败」处理，不中断整批

const (
	// DefaultMaxRetries 默认最大重试次数
	DefaultMaxRetries = 5
	// DefaultBaseDelay 默认基础退避时长（第 n 次重试等待 base * 2^(n-1)）
	DefaultBaseDelay = 10 * time.Second
)

// IsOverloaded 判断错误是否为瞬时过载（503 / overloaded）
func IsOverloaded(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "503") ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}

// RetryPolicy 重试策略
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy 默认策略
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: DefaultMaxRetries, BaseDelay: DefaultBaseDelay}
}

// WithRetry 执行 fn，瞬时过载时按有界指数退避重试
// 非过载错误立即返回；ctx 取消时在退避间隙协作式退出
func WithRetry(ctx context.Context, policy RetryPolicy, unit string, fn func() error) error {
	if policy.MaxRetries <= 0 {
		policy.MaxRetries = DefaultMaxRetries
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultBaseDelay
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := policy.BaseDelay * (1 << (attempt - 1))
			log.Warn().
				Str("unit", unit).
				Int("retry", attempt).
				Int("max_retries", policy.MaxRetries).
				Dur("delay", delay).
				Msg("模型过载，退避后重试")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsOverloaded(lastErr) {
			return lastErr
		}
	}

	log.Error().
		Str("unit", unit).
		Int("max_retries", policy.MaxRetries).
		Err(lastErr).
		Msg("重试次数耗尽，放弃该单元")
	return lastErr
}
