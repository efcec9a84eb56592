package sourcing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gitroshpdx/finance-clarity-sub000/config"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/model"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/search"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/repository"
	"k8s.io/klog/v2"
)

const (
	defaultLimit       = 5
	defaultDedupWindow = 7 * 24 * time.Hour
)

// ErrNoSourcesFound 去重后没有可用素材
var ErrNoSourcesFound = errors.New("no sources found")

// SourcingError 搜索服务调用失败
type SourcingError struct {
	Query string
	Err   error
}

func (e *SourcingError) Error() string {
	return fmt.Sprintf("sourcing failed for %q: %v", e.Query, e.Err)
}

func (e *SourcingError) Unwrap() error {
	return e.Err
}

// 每个栏目固定的搜索词
var categoryQueries = map[string]string{
	model.CategoryMarkets:         "stock market news today S&P 500 Dow Jones Nasdaq",
	model.CategoryEconomy:         "economy news today inflation GDP jobs report",
	model.CategoryStocks:          "stock market movers today earnings upgrades downgrades",
	model.CategoryCrypto:          "cryptocurrency news today bitcoin ethereum",
	model.CategoryCommodities:     "commodities news today oil gold prices",
	model.CategoryForex:           "forex news today dollar euro yen currency markets",
	model.CategoryPersonalFinance: "personal finance news today mortgage rates savings",
	model.CategoryPolicy:          "federal reserve monetary policy news today",
	model.CategoryEarnings:        "quarterly earnings reports news today",
	model.CategoryGlobal:          "global markets news today Europe Asia",
}

// QueryFor 返回栏目对应的搜索词，未知栏目使用通用搜索词
func QueryFor(category string) string {
	if q, ok := categoryQueries[category]; ok {
		return q
	}
	return fmt.Sprintf("%s news today", category)
}

// Searcher 搜索服务
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]search.Result, error)
}

// Adapter 新闻素材适配器
type Adapter struct {
	searcher    Searcher
	sourceRepo  repository.SourceRepository
	limit       int
	dedupWindow time.Duration
	now         func() time.Time
}

// NewAdapter 创建素材适配器
func NewAdapter(cfg *config.Config, searcher Searcher, sourceRepo repository.SourceRepository) *Adapter {
	a := &Adapter{
		searcher:    searcher,
		sourceRepo:  sourceRepo,
		limit:       cfg.Search.MaxResults,
		dedupWindow: cfg.Search.DedupWindow,
		now:         time.Now,
	}
	if a.limit <= 0 {
		a.limit = defaultLimit
	}
	if a.dedupWindow <= 0 {
		a.dedupWindow = defaultDedupWindow
	}
	return a
}

// FetchSources 搜索栏目素材，并剔除去重窗口内已经用过的链接
func (a *Adapter) FetchSources(ctx context.Context, category string) ([]search.Result, error) {
	query := QueryFor(category)
	klog.V(6).Infof("获取新闻素材: category=%s, query=%s", category, query)

	results, err := a.searcher.Search(ctx, query, a.limit)
	if err != nil {
		if errors.Is(err, search.ErrNoResults) {
			return nil, ErrNoSourcesFound
		}
		return nil, &SourcingError{Query: query, Err: err}
	}

	fresh, err := a.FilterUsed(ctx, results)
	if err != nil {
		return nil, &SourcingError{Query: query, Err: err}
	}
	if len(fresh) == 0 {
		klog.Warningf("去重后没有可用素材: category=%s, results=%d", category, len(results))
		return nil, ErrNoSourcesFound
	}

	klog.V(6).Infof("获取新闻素材完成: category=%s, results=%d, fresh=%d", category, len(results), len(fresh))
	return fresh, nil
}

// FilterUsed 剔除窗口内已被文章使用过的链接，同一批内重复的链接也只保留一个
func (a *Adapter) FilterUsed(ctx context.Context, results []search.Result) ([]search.Result, error) {
	urls := make([]string, 0, len(results))
	for _, r := range results {
		urls = append(urls, r.URL)
	}
	used, err := a.UsedURLs(ctx, urls)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(results))
	fresh := make([]search.Result, 0, len(results))
	for _, r := range results {
		if used[r.URL] || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		fresh = append(fresh, r)
	}
	return fresh, nil
}

// UsedURLs 返回窗口内已使用的链接
func (a *Adapter) UsedURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	if len(urls) == 0 {
		return map[string]bool{}, nil
	}
	return a.sourceRepo.UsedSince(ctx, urls, a.now().Add(-a.dedupWindow))
}

// CombineSources 拼接为模型输入文本
func CombineSources(results []search.Result) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&sb, "Source %d: %s\n%s\n%s", i+1, r.Title, r.URL, r.Text())
	}
	return sb.String()
}

// SourceURLs 提取链接列表
func SourceURLs(results []search.Result) []string {
	urls := make([]string, 0, len(results))
	for _, r := range results {
		urls = append(urls, r.URL)
	}
	return urls
}
