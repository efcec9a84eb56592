package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gitroshpdx/finance-clarity-sub000/config"
	"k8s.io/klog/v2"
)

// PageStat 单页访问量
type PageStat struct {
	Path  string `json:"path"`
	Views int64  `json:"views"`
}

// AnalyticsMetrics 后台看板指标，缺失的数据一律为零值
type AnalyticsMetrics struct {
	PageViews          int64      `json:"pageViews"`
	Visitors           int64      `json:"visitors"`
	Sessions           int64      `json:"sessions"`
	BounceRate         float64    `json:"bounceRate"`
	AvgSessionDuration float64    `json:"avgSessionDuration"`
	TopPages           []PageStat `json:"topPages"`
}

func emptyMetrics() *AnalyticsMetrics {
	return &AnalyticsMetrics{TopPages: []PageStat{}}
}

// AnalyticsService 统计代理服务接口
type AnalyticsService interface {
	Fetch(ctx context.Context, startDate, endDate string) *AnalyticsMetrics
}

type analyticsService struct {
	apiURL     string
	apiKey     string
	propertyID string
	client     *http.Client
}

// NewAnalyticsService 创建统计代理服务
func NewAnalyticsService(cfg config.AnalyticsConfig) AnalyticsService {
	return &analyticsService{
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		apiKey:     cfg.APIKey,
		propertyID: cfg.PropertyID,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch 查询统计数据，任何上游错误都降级为零值
func (s *analyticsService) Fetch(ctx context.Context, startDate, endDate string) *AnalyticsMetrics {
	if s.apiURL == "" {
		klog.V(6).Infof("未配置统计服务，返回空数据")
		return emptyMetrics()
	}
	metrics, err := s.fetch(ctx, startDate, endDate)
	if err != nil {
		klog.Warningf("统计数据获取失败，返回空数据: start=%s, end=%s, error=%v", startDate, endDate, err)
		return emptyMetrics()
	}
	return metrics
}

func (s *analyticsService) fetch(ctx context.Context, startDate, endDate string) (*AnalyticsMetrics, error) {
	jsonData, err := json.Marshal(map[string]string{
		"propertyId": s.propertyID,
		"startDate":  startDate,
		"endDate":    endDate,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/report", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("analytics API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	metrics := emptyMetrics()
	if err := json.NewDecoder(resp.Body).Decode(metrics); err != nil {
		return nil, err
	}
	if metrics.TopPages == nil {
		metrics.TopPages = []PageStat{}
	}
	return metrics, nil
}
