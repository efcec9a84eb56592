package generator

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/llm"
	"k8s.io/klog/v2"
)

// ModelClient 生成服务依赖的模型调用
type ModelClient interface {
	GenerateStructured(ctx context.Context, systemPrompt, userPrompt string, tool llm.Tool) (*llm.ToolCall, *llm.ChatResponse, error)
	ChatStream(ctx context.Context, messages []llm.ChatMessage) (<-chan llm.StreamChunk, error)
}

// ReportRequest generate-report 的参数
type ReportRequest struct {
	Topic                  string
	Category               string
	Sources                []string
	WordCount              int
	AdditionalInstructions string
}

// Service 内容生成服务
type Service struct {
	client ModelClient
}

func New(client ModelClient) *Service {
	return &Service{client: client}
}

// GenerateDraft 结构化生成报告草稿，返回草稿与 token 用量
func (s *Service) GenerateDraft(ctx context.Context, req DraftRequest) (*Draft, *schema.TokenUsage, error) {
	klog.V(6).Infof("生成报告草稿: category=%s, rawLength=%d", req.Category, len(req.RawText))

	call, resp, err := s.client.GenerateStructured(ctx, draftSystemPrompt, buildDraftPrompt(req), MarketReportTool())
	if err != nil {
		return nil, nil, err
	}

	var draft Draft
	if err := decodeArguments(call, draftRequiredFields, &draft); err != nil {
		klog.Warningf("报告草稿结构不合法: error=%v", err)
		return nil, nil, err
	}
	if err := draft.validate(); err != nil {
		klog.Warningf("报告草稿校验失败: error=%v", err)
		return nil, nil, err
	}

	klog.V(6).Infof("生成报告草稿完成: title=%s, slug=%s, tokens=%d", draft.Title, draft.Slug, resp.Usage.TotalTokens)
	return &draft, resp.Usage.TokenUsage(), nil
}

// ParseArticle 从已有文章文本抽取标题、摘要、栏目和标签
func (s *Service) ParseArticle(ctx context.Context, text string) (*ArticleMetadata, error) {
	klog.V(6).Infof("解析文章元数据: length=%d", len(text))

	call, _, err := s.client.GenerateStructured(ctx, metadataSystemPrompt, text, ArticleMetadataTool())
	if err != nil {
		return nil, err
	}

	var meta ArticleMetadata
	if err := decodeArguments(call, metadataRequiredFields, &meta); err != nil {
		return nil, err
	}
	if err := meta.validate(); err != nil {
		return nil, err
	}
	meta.Excerpt = truncateRunes(strings.TrimSpace(meta.Excerpt), excerptLimit)
	return &meta, nil
}

// StreamReport 流式生成长文，返回增量通道
func (s *Service) StreamReport(ctx context.Context, req ReportRequest) (<-chan llm.StreamChunk, error) {
	klog.V(6).Infof("流式生成报告: topic=%s, category=%s, sources=%d", req.Topic, req.Category, len(req.Sources))
	return s.client.ChatStream(ctx, []llm.ChatMessage{
		{Role: "system", Content: reportSystemPrompt},
		{Role: "user", Content: buildReportPrompt(req)},
	})
}
