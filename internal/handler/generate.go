package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/llm"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service/generator"
	"k8s.io/klog/v2"
)

// ReportGenerator 流式生成与文章解析
type ReportGenerator interface {
	StreamReport(ctx context.Context, req generator.ReportRequest) (<-chan llm.StreamChunk, error)
	ParseArticle(ctx context.Context, text string) (*generator.ArticleMetadata, error)
}

// GenerateHandler 生成相关接口
type GenerateHandler struct {
	gen ReportGenerator
}

func NewGenerateHandler(gen ReportGenerator) *GenerateHandler {
	return &GenerateHandler{gen: gen}
}

type generateReportRequest struct {
	Topic                  string   `json:"topic" binding:"required"`
	Category               string   `json:"category"`
	Sources                []string `json:"sources"`
	WordCount              int      `json:"wordCount"`
	AdditionalInstructions string   `json:"additionalInstructions"`
}

// GenerateReport 流式生成长文
// POST /api/generate-report
func (h *GenerateHandler) GenerateReport(c *gin.Context) {
	var req generateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	ctx := c.Request.Context()
	chunks, err := h.gen.StreamReport(ctx, generator.ReportRequest{
		Topic:                  req.Topic,
		Category:               req.Category,
		Sources:                req.Sources,
		WordCount:              req.WordCount,
		AdditionalInstructions: req.AdditionalInstructions,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	// 设置响应头
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	for {
		select {
		case <-ctx.Done():
			klog.V(6).Infof("客户端断开，停止流式生成: topic=%s", req.Topic)
			return
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			if chunk.Err != nil {
				klog.Warningf("流式生成中断: topic=%s, error=%v", req.Topic, chunk.Err)
				writeEvent(c, gin.H{"error": chunk.Err.Error()})
				return
			}
			if chunk.Done {
				// 完成前推送从全文猜测的标题与摘要
				title, excerpt := generator.ExtractTitleAndExcerpt(chunk.Text)
				writeEvent(c, gin.H{"title": title, "excerpt": excerpt})
				fmt.Fprint(c.Writer, "data: [DONE]\n\n")
				c.Writer.Flush()
				return
			}
			if chunk.Delta == "" {
				continue
			}
			writeEvent(c, gin.H{"content": chunk.Delta, "text": chunk.Text})
		}
	}
}

func writeEvent(c *gin.Context, payload gin.H) {
	data, err := json.Marshal(payload)
	if err != nil {
		klog.Errorf("序列化流式事件失败: error=%v", err)
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	c.Writer.Flush()
}

type parseArticleRequest struct {
	ArticleText string `json:"articleText" binding:"required"`
}

// ParseArticle 从文章文本抽取元数据
// POST /api/parse-article
func (h *GenerateHandler) ParseArticle(c *gin.Context) {
	var req parseArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	meta, err := h.gen.ParseArticle(c.Request.Context(), req.ArticleText)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}
