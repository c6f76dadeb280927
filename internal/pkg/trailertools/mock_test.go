package trailertools

import (
	"context"
	"errors"
)

// fakeLLM 按顺序返回预置响应的 LLM 假实现，供各单测复用
type fakeLLM struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	idx := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)

	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	if err != nil {
		return "", err
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", errors.New("no more responses")
}

// fastRetry 单测用的快速重试策略
func fastRetry() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: 1}
}
