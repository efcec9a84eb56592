package generator

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockModelClient struct {
	GenerateStructuredFunc func(ctx context.Context, systemPrompt, userPrompt string, tool llm.Tool) (*llm.ToolCall, *llm.ChatResponse, error)
	ChatStreamFunc         func(ctx context.Context, messages []llm.ChatMessage) (<-chan llm.StreamChunk, error)
	LastUserPrompt         string
	LastTool               llm.Tool
}

func (m *mockModelClient) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string, tool llm.Tool) (*llm.ToolCall, *llm.ChatResponse, error) {
	m.LastUserPrompt = userPrompt
	m.LastTool = tool
	return m.GenerateStructuredFunc(ctx, systemPrompt, userPrompt, tool)
}

func (m *mockModelClient) ChatStream(ctx context.Context, messages []llm.ChatMessage) (<-chan llm.StreamChunk, error) {
	return m.ChatStreamFunc(ctx, messages)
}

func validDraftArgs() map[string]any {
	return map[string]any{
		"title":             "Stocks Climb as Yields Ease",
		"subtitle":          "Investors price in a softer Fed path",
		"slug":              "stocks-climb-as-yields-ease",
		"category":          "markets",
		"region_tags":       []string{"US"},
		"summary":           []string{"one", "two", "three"},
		"content":           "## Overview\n> DATA: S&P 500 +1.2%",
		"sources":           []string{"https://a.example"},
		"seo_keywords":      []string{"stocks", "yields", "fed"},
		"read_time_minutes": 7,
	}
}

func callWith(t *testing.T, name string, args map[string]any) func(context.Context, string, string, llm.Tool) (*llm.ToolCall, *llm.ChatResponse, error) {
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return func(ctx context.Context, systemPrompt, userPrompt string, tool llm.Tool) (*llm.ToolCall, *llm.ChatResponse, error) {
		call := &llm.ToolCall{ID: "c1", Type: "function", Function: llm.FunctionCall{Name: name, Arguments: string(raw)}}
		return call, &llm.ChatResponse{Usage: llm.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150}}, nil
	}
}

func TestGenerateDraft(t *testing.T) {
	client := &mockModelClient{GenerateStructuredFunc: callWith(t, ToolCreateMarketReport, validDraftArgs())}
	svc := New(client)

	draft, usage, err := svc.GenerateDraft(context.Background(), DraftRequest{
		RawText:       "Stocks rose on Tuesday.",
		Category:      "markets",
		RegionTags:    []string{"US"},
		MarketContext: map[string]string{"vix": "14.2", "dxy": "103.1"},
		PublishDate:   "2026-10-16",
	})
	require.NoError(t, err)
	assert.Equal(t, "stocks-climb-as-yields-ease", draft.Slug)
	assert.Len(t, draft.Summary, 3)
	assert.Equal(t, 7, draft.ReadTimeMinutes)
	assert.Equal(t, 150, usage.TotalTokens)

	assert.Equal(t, ToolCreateMarketReport, client.LastTool.Function.Name)
	assert.Contains(t, client.LastUserPrompt, "Stocks rose on Tuesday.")
	assert.Less(t, strings.Index(client.LastUserPrompt, "- dxy"), strings.Index(client.LastUserPrompt, "- vix"))
}

func TestGenerateDraftMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(args map[string]any)
		reason string
	}{
		{"missing title", func(a map[string]any) { delete(a, "title") }, `"title"`},
		{"blank content", func(a map[string]any) { a["content"] = "  " }, `"content"`},
		{"null keywords", func(a map[string]any) { a["seo_keywords"] = nil }, `"seo_keywords"`},
		{"two summary points", func(a map[string]any) { a["summary"] = []string{"a", "b"} }, "exactly 3"},
		{"four summary points", func(a map[string]any) { a["summary"] = []string{"a", "b", "c", "d"} }, "exactly 3"},
		{"unknown category", func(a map[string]any) { a["category"] = "sports" }, "unknown category"},
		{"missing read time", func(a map[string]any) { delete(a, "read_time_minutes") }, `"read_time_minutes"`},
		{"negative read time", func(a map[string]any) { a["read_time_minutes"] = -3 }, "must not be negative"},
		{"wrong type", func(a map[string]any) { a["read_time_minutes"] = "seven" }, "do not match schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := validDraftArgs()
			tt.mutate(args)
			svc := New(&mockModelClient{GenerateStructuredFunc: callWith(t, ToolCreateMarketReport, args)})

			_, _, err := svc.GenerateDraft(context.Background(), DraftRequest{RawText: "x"})
			require.ErrorIs(t, err, llm.ErrMalformedResponse)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestGenerateDraftAcceptsZeroReadTime(t *testing.T) {
	args := validDraftArgs()
	args["read_time_minutes"] = 0
	svc := New(&mockModelClient{GenerateStructuredFunc: callWith(t, ToolCreateMarketReport, args)})

	draft, _, err := svc.GenerateDraft(context.Background(), DraftRequest{RawText: "x"})
	require.NoError(t, err)
	assert.Equal(t, 0, draft.ReadTimeMinutes)
}

func TestGenerateDraftPassesUpstreamErrors(t *testing.T) {
	svc := New(&mockModelClient{
		GenerateStructuredFunc: func(ctx context.Context, systemPrompt, userPrompt string, tool llm.Tool) (*llm.ToolCall, *llm.ChatResponse, error) {
			return nil, nil, &llm.APIError{StatusCode: 429}
		},
	})

	_, _, err := svc.GenerateDraft(context.Background(), DraftRequest{RawText: "x"})
	assert.ErrorIs(t, err, llm.ErrRateLimited)
}

func TestParseArticle(t *testing.T) {
	longExcerpt := strings.Repeat("a", 250)
	client := &mockModelClient{GenerateStructuredFunc: callWith(t, ToolExtractArticleMetadata, map[string]any{
		"title":    "Gold Hits Record",
		"excerpt":  longExcerpt,
		"category": "commodities",
		"tags":     []string{"gold", " ", "metals"},
	})}

	meta, err := New(client).ParseArticle(context.Background(), "Gold hit a record high...")
	require.NoError(t, err)
	assert.Equal(t, "Gold Hits Record", meta.Title)
	assert.Equal(t, []string{"gold", "metals"}, meta.Tags)
	assert.Equal(t, strings.Repeat("a", 200)+"...", meta.Excerpt)
	assert.Equal(t, ToolExtractArticleMetadata, client.LastTool.Function.Name)
}

func TestParseArticleMissingTags(t *testing.T) {
	client := &mockModelClient{GenerateStructuredFunc: callWith(t, ToolExtractArticleMetadata, map[string]any{
		"title":    "T",
		"excerpt":  "E",
		"category": "markets",
		"tags":     []string{},
	})}

	_, err := New(client).ParseArticle(context.Background(), "text")
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)
}

func TestStreamReport(t *testing.T) {
	var got []llm.ChatMessage
	client := &mockModelClient{
		ChatStreamFunc: func(ctx context.Context, messages []llm.ChatMessage) (<-chan llm.StreamChunk, error) {
			got = messages
			ch := make(chan llm.StreamChunk, 2)
			ch <- llm.StreamChunk{Delta: "# T", Text: "# T"}
			ch <- llm.StreamChunk{Text: "# T", Done: true}
			close(ch)
			return ch, nil
		},
	}

	chunks, err := New(client).StreamReport(context.Background(), ReportRequest{
		Topic:     "Fed decision",
		Sources:   []string{"https://a"},
		WordCount: 800,
	})
	require.NoError(t, err)
	var last llm.StreamChunk
	for chunk := range chunks {
		last = chunk
	}
	require.NoError(t, last.Err)
	assert.True(t, last.Done)
	assert.Equal(t, "# T", last.Text)

	require.Len(t, got, 2)
	assert.Equal(t, "system", got[0].Role)
	assert.Contains(t, got[1].Content, "Topic: Fed decision")
	assert.Contains(t, got[1].Content, "about 800 words")
	assert.Contains(t, got[1].Content, "- https://a")
}

func TestMarketReportToolSchema(t *testing.T) {
	tool := MarketReportTool()
	props := tool.Function.Parameters.Properties

	assert.Equal(t, 3, props["summary"].MinItems)
	assert.Equal(t, 3, props["summary"].MaxItems)
	assert.Contains(t, props["category"].Enum, "personal-finance")
	for _, field := range draftRequiredFields {
		assert.Contains(t, tool.Function.Parameters.Required, field)
	}
}
