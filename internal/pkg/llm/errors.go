package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrRateLimited 上游限流，稍后重试
	ErrRateLimited = errors.New("rate limited by model gateway, please retry later")

	// ErrQuotaExhausted 上游额度耗尽，需要人工处理
	ErrQuotaExhausted = errors.New("model gateway credits exhausted, please top up")

	// ErrMalformedResponse 响应缺少结构化调用或必填字段
	ErrMalformedResponse = errors.New("malformed-response")

	// ErrStreamIncomplete 流在完成信号之前结束
	ErrStreamIncomplete = errors.New("stream ended before completion signal")
)

// APIError 上游非 2xx 响应
type APIError struct {
	StatusCode int
	Message    string
	Type       string
	Code       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("model gateway error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("model gateway error: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap 限流和额度耗尽映射到对应的哨兵错误
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode == http.StatusPaymentRequired,
		e.Code == "insufficient_quota",
		strings.Contains(strings.ToLower(e.Message), "credits"):
		return ErrQuotaExhausted
	}
	return nil
}

// MalformedError 结构化输出校验失败
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedResponse.Error(), e.Reason)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformedResponse
}

// Malformed 构造结构化输出错误
func Malformed(format string, args ...any) error {
	return &MalformedError{Reason: fmt.Sprintf(format, args...)}
}
