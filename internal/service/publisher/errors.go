package publisher

import (
	"errors"
	"fmt"

	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/llm"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service/sourcing"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service/statemachine"
)

// Kind 流水线失败类型
type Kind string

const (
	KindUnauthorized   Kind = "Unauthorized"
	KindValidation     Kind = "ValidationError"
	KindRateLimited    Kind = "RateLimited"
	KindQuotaExhausted Kind = "QuotaExhausted"
	KindNoSourcesFound Kind = "NoSourcesFound"
	KindSourcing       Kind = "SourcingError"
	KindGeneration     Kind = "GenerationError"
	KindPersistence    Kind = "PersistenceError"
)

// PipelineError 流水线失败，Stage 为失败时所在阶段
type PipelineError struct {
	Kind  Kind
	Stage statemachine.Stage
	Err   error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// KindOf 返回错误的失败类型，非流水线错误返回空
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func validationError(format string, args ...any) error {
	return &PipelineError{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

// generationKind 模型调用错误分类
func generationKind(err error) Kind {
	switch {
	case errors.Is(err, llm.ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, llm.ErrQuotaExhausted):
		return KindQuotaExhausted
	default:
		return KindGeneration
	}
}

// sourcingKind 素材获取错误分类
func sourcingKind(err error) Kind {
	if errors.Is(err, sourcing.ErrNoSourcesFound) {
		return KindNoSourcesFound
	}
	return KindSourcing
}
