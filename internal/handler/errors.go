package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/llm"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service/publisher"
	"k8s.io/klog/v2"
)

const kindNotFound = "NotFound"

var kindStatus = map[publisher.Kind]int{
	publisher.KindUnauthorized:   http.StatusUnauthorized,
	publisher.KindValidation:     http.StatusBadRequest,
	publisher.KindRateLimited:    http.StatusTooManyRequests,
	publisher.KindQuotaExhausted: http.StatusPaymentRequired,
	publisher.KindNoSourcesFound: http.StatusNotFound,
	publisher.KindSourcing:       http.StatusInternalServerError,
	publisher.KindGeneration:     http.StatusInternalServerError,
	publisher.KindPersistence:    http.StatusInternalServerError,
}

// classify 错误分类：HTTP 状态码与失败类型
func classify(err error) (int, string) {
	if kind := publisher.KindOf(err); kind != "" {
		if status, ok := kindStatus[kind]; ok {
			return status, string(kind)
		}
	}
	switch {
	case errors.Is(err, service.ErrArticleNotFound):
		return http.StatusNotFound, kindNotFound
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, string(publisher.KindValidation)
	case errors.Is(err, llm.ErrRateLimited):
		return http.StatusTooManyRequests, string(publisher.KindRateLimited)
	case errors.Is(err, llm.ErrQuotaExhausted):
		return http.StatusPaymentRequired, string(publisher.KindQuotaExhausted)
	}
	var apiErr *llm.APIError
	if errors.Is(err, llm.ErrMalformedResponse) || errors.Is(err, llm.ErrStreamIncomplete) || errors.As(err, &apiErr) {
		return http.StatusInternalServerError, string(publisher.KindGeneration)
	}
	return http.StatusInternalServerError, string(publisher.KindPersistence)
}

// writeError 统一的错误响应 {"error": message, "kind": kind}
func writeError(c *gin.Context, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		klog.Errorf("请求失败: method=%s, path=%s, kind=%s, error=%v", c.Request.Method, c.FullPath(), kind, err)
	} else {
		klog.V(6).Infof("请求被拒绝: method=%s, path=%s, kind=%s, error=%v", c.Request.Method, c.FullPath(), kind, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
}

func bindError(err error) error {
	return fmt.Errorf("%w: %v", service.ErrValidation, err)
}
