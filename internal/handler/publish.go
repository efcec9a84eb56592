package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/middleware"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service/publisher"
)

// Pipeline 发布编排
type Pipeline interface {
	AutoPublish(ctx context.Context, userID string, req publisher.AutoPublishRequest) (*publisher.AutoPublishResult, error)
	Preview(ctx context.Context, userID, category string) (*publisher.PreviewPayload, error)
	PublishPrepared(ctx context.Context, userID string, data publisher.PublishData) (*publisher.PublishedArticle, error)
}

// PublishHandler 发布相关接口
type PublishHandler struct {
	pipeline Pipeline
}

func NewPublishHandler(pipeline Pipeline) *PublishHandler {
	return &PublishHandler{pipeline: pipeline}
}

// AutoPublish 原始新闻直接生成并保存
// POST /api/auto-publish
func (h *PublishHandler) AutoPublish(c *gin.Context) {
	var req publisher.AutoPublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	user, _ := middleware.GetLoginUser(c)
	result, err := h.pipeline.AutoPublish(c.Request.Context(), user, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type oneClickPublishRequest struct {
	Category    string                 `json:"category"`
	Preview     bool                   `json:"preview"`
	PublishData *publisher.PublishData `json:"publishData"`
}

// OneClickPublish 预览或提交已审阅内容
// POST /api/one-click-publish
func (h *PublishHandler) OneClickPublish(c *gin.Context) {
	var req oneClickPublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	user, _ := middleware.GetLoginUser(c)
	ctx := c.Request.Context()
	switch {
	case req.PublishData != nil:
		article, err := h.pipeline.PublishPrepared(ctx, user, *req.PublishData)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "article": article})
	case req.Preview:
		payload, err := h.pipeline.Preview(ctx, user, req.Category)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": payload})
	default:
		writeError(c, bindError(errors.New("either preview or publishData is required")))
	}
}
