package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxPageBytes = 2 << 20

var blankLines = regexp.MustCompile(`\n{3,}`)

var contentSelectors = []string{
	"article",
	"main",
	"[role='main']",
	".article-body",
	".entry-content",
	".post-content",
	"#content",
}

// PageFetcher 抓取网页并提取正文段落
type PageFetcher struct {
	client *http.Client
}

func NewPageFetcher(client *http.Client) *PageFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &PageFetcher{client: client}
}

// Fetch 下载网页并返回正文文本
func (f *PageFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "finance-clarity-bot/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s: status code %d", url, resp.StatusCode)
	}

	return ExtractText(io.LimitReader(resp.Body, maxPageBytes))
}

// ExtractText 从 HTML 中提取正文，优先常见的正文容器
func ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript").Remove()

	var sb strings.Builder
	collect := func(s *goquery.Selection) {
		s.Find("h1, h2, h3, p, li, blockquote").Each(func(_ int, item *goquery.Selection) {
			text := strings.TrimSpace(item.Text())
			if text == "" {
				return
			}
			sb.WriteString(text)
			sb.WriteString("\n\n")
		})
	}

	for _, selector := range contentSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			collect(s)
		})
		if sb.Len() > 0 {
			break
		}
	}
	if sb.Len() == 0 {
		collect(doc.Find("body"))
	}

	text := blankLines.ReplaceAllString(sb.String(), "\n\n")
	return strings.TrimSpace(text), nil
}
