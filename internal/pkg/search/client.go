package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gitroshpdx/finance-clarity-sub000/config"
	"k8s.io/klog/v2"
)

// ErrNoResults 搜索没有返回任何结果
var ErrNoResults = errors.New("no search results")

// Result 单条搜索结果
type Result struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"markdown"`
}

// Text 优先返回正文，没有正文时退回摘要
func (r Result) Text() string {
	if strings.TrimSpace(r.Content) != "" {
		return r.Content
	}
	return r.Description
}

type searchRequest struct {
	Query         string        `json:"query"`
	Limit         int           `json:"limit"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type scrapeOptions struct {
	Formats []string `json:"formats"`
}

type searchResponse struct {
	Success bool     `json:"success"`
	Data    []Result `json:"data"`
	Error   string   `json:"error,omitempty"`
}

// Client 托管搜索/抓取服务客户端
type Client struct {
	BaseURL    string
	APIKey     string
	MaxResults int
	Client     *http.Client
	fetcher    *PageFetcher
}

// NewClient 创建搜索客户端
func NewClient(cfg *config.Config) *Client {
	httpClient := &http.Client{Timeout: 60 * time.Second}
	return &Client{
		BaseURL:    strings.TrimRight(cfg.Search.APIURL, "/"),
		APIKey:     cfg.Search.APIKey,
		MaxResults: cfg.Search.MaxResults,
		Client:     httpClient,
		fetcher:    NewPageFetcher(httpClient),
	}
}

// Search 按查询词搜索并抓取正文
// limit <= 0 时使用配置的默认条数
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = c.MaxResults
	}
	if limit <= 0 {
		limit = 5
	}
	klog.V(6).Infof("搜索新闻: query=%s, limit=%d", query, limit)

	jsonData, err := json.Marshal(searchRequest{
		Query:         query,
		Limit:         limit,
		ScrapeOptions: scrapeOptions{Formats: []string{"markdown"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/search", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("search API error: %s", parsed.Error)
	}

	results := make([]Result, 0, len(parsed.Data))
	for _, r := range parsed.Data {
		if strings.TrimSpace(r.URL) == "" {
			continue
		}
		results = append(results, r)
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	// 上游可能返回多于 limit 的条目
	if len(results) > limit {
		results = results[:limit]
	}

	c.fillContent(ctx, results)
	klog.V(6).Infof("搜索完成: query=%s, results=%d", query, len(results))
	return results, nil
}

// fillContent 正文为空的结果抓取原网页补全，失败时保留摘要
func (c *Client) fillContent(ctx context.Context, results []Result) {
	if c.fetcher == nil {
		return
	}
	for i := range results {
		if strings.TrimSpace(results[i].Content) != "" {
			continue
		}
		text, err := c.fetcher.Fetch(ctx, results[i].URL)
		if err != nil {
			klog.Warningf("抓取网页正文失败: url=%s, err=%v", results[i].URL, err)
			continue
		}
		results[i].Content = text
	}
}
