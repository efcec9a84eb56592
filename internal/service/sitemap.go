package service

import (
	"context"
	"encoding/xml"
	"strings"
	"time"

	"github.com/gitroshpdx/finance-clarity-sub000/internal/model"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/repository"
	"k8s.io/klog/v2"
)

// 单个 sitemap 文件最多 50000 条
const maxSitemapURLs = 50000

var staticPages = []struct {
	Path       string
	ChangeFreq string
	Priority   string
}{
	{"/", "hourly", "1.0"},
	{"/news", "hourly", "0.9"},
	{"/about", "monthly", "0.4"},
	{"/methodology", "monthly", "0.4"},
	{"/contact", "yearly", "0.3"},
	{"/privacy", "yearly", "0.2"},
	{"/terms", "yearly", "0.2"},
}

// SitemapURL sitemap 条目
type SitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// SitemapService 站点地图服务接口
type SitemapService interface {
	URLs(ctx context.Context) ([]SitemapURL, error)
	XML(ctx context.Context) ([]byte, error)
	Text(ctx context.Context) (string, error)
}

type sitemapService struct {
	repo    repository.ArticleRepository
	siteURL string
}

// NewSitemapService 创建站点地图服务
func NewSitemapService(repo repository.ArticleRepository, siteURL string) SitemapService {
	return &sitemapService{repo: repo, siteURL: strings.TrimRight(siteURL, "/")}
}

// URLs 静态页面、栏目页和已发布文章
func (s *sitemapService) URLs(ctx context.Context) ([]SitemapURL, error) {
	urls := make([]SitemapURL, 0, len(staticPages)+len(model.Categories))
	for _, p := range staticPages {
		urls = append(urls, SitemapURL{Loc: s.siteURL + p.Path, ChangeFreq: p.ChangeFreq, Priority: p.Priority})
	}
	for _, c := range model.Categories {
		urls = append(urls, SitemapURL{Loc: s.siteURL + "/category/" + c.Slug, ChangeFreq: "daily", Priority: "0.8"})
	}

	articles, err := s.repo.List(ctx, repository.ArticleFilter{
		Status: model.ArticleStatusPublished,
		Limit:  maxSitemapURLs - len(urls),
	})
	if err != nil {
		klog.Errorf("读取已发布文章失败: error=%v", err)
		return nil, err
	}
	for _, a := range articles {
		urls = append(urls, SitemapURL{
			Loc:        s.siteURL + "/article/" + a.Slug,
			LastMod:    lastMod(a),
			ChangeFreq: "weekly",
			Priority:   "0.7",
		})
	}
	klog.V(6).Infof("生成站点地图: total=%d, articles=%d", len(urls), len(articles))
	return urls, nil
}

func lastMod(a model.Article) string {
	t := a.UpdatedAt
	if t.IsZero() && a.PublishedAt != nil {
		t = *a.PublishedAt
	}
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}

func (s *sitemapService) XML(ctx context.Context) ([]byte, error) {
	urls, err := s.URLs(ctx)
	if err != nil {
		return nil, err
	}
	body, err := xml.MarshalIndent(urlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

func (s *sitemapService) Text(ctx context.Context) (string, error) {
	urls, err := s.URLs(ctx)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, u := range urls {
		sb.WriteString(u.Loc)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
