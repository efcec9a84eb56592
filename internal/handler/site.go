package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service"
)

// SiteHandler 站点地图与访问统计
type SiteHandler struct {
	sitemap   service.SitemapService
	analytics service.AnalyticsService
	now       func() time.Time
}

func NewSiteHandler(sitemap service.SitemapService, analytics service.AnalyticsService) *SiteHandler {
	return &SiteHandler{sitemap: sitemap, analytics: analytics, now: time.Now}
}

// Sitemap GET /api/sitemap
func (h *SiteHandler) Sitemap(c *gin.Context) {
	data, err := h.sitemap.XML(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "application/xml; charset=utf-8", data)
}

// SitemapText GET /api/sitemap-txt
func (h *SiteHandler) SitemapText(c *gin.Context) {
	text, err := h.sitemap.Text(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

type analyticsRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// GetAnalytics 访问统计，上游失败时返回全零
// POST /api/get-analytics
func (h *SiteHandler) GetAnalytics(c *gin.Context) {
	var req analyticsRequest
	// 请求体可以为空
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, bindError(err))
		return
	}
	// 默认最近 30 天
	if req.EndDate == "" {
		req.EndDate = h.now().Format(time.DateOnly)
	}
	if req.StartDate == "" {
		req.StartDate = h.now().AddDate(0, 0, -30).Format(time.DateOnly)
	}

	c.JSON(http.StatusOK, h.analytics.Fetch(c.Request.Context(), req.StartDate, req.EndDate))
}

// Health GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
