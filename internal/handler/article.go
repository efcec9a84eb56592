package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/middleware"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/repository"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service"
)

// ArticleHandler 文章读取与后台编辑
type ArticleHandler struct {
	articles service.ArticleService
	usage    service.UsageService
}

func NewArticleHandler(articles service.ArticleService, usage service.UsageService) *ArticleHandler {
	return &ArticleHandler{articles: articles, usage: usage}
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// List 已发布文章列表
// GET /api/articles
func (h *ArticleHandler) List(c *gin.Context) {
	articles, err := h.articles.ListPublished(c.Request.Context(), c.Query("category"), queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// Get 按 slug 读取已发布文章
// GET /api/articles/:slug
func (h *ArticleHandler) Get(c *gin.Context) {
	article, err := h.articles.GetPublishedBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// AdminList 后台文章列表，包含草稿
// GET /api/admin/articles
func (h *ArticleHandler) AdminList(c *gin.Context) {
	articles, err := h.articles.List(c.Request.Context(), repository.ArticleFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Limit:    queryInt(c, "limit", 20),
		Offset:   queryInt(c, "offset", 0),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// AdminGet GET /api/admin/articles/:id
func (h *ArticleHandler) AdminGet(c *gin.Context) {
	article, err := h.articles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// AdminCreate POST /api/admin/articles
func (h *ArticleHandler) AdminCreate(c *gin.Context) {
	var req service.SaveArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	user, _ := middleware.GetLoginUser(c)
	article, err := h.articles.Create(c.Request.Context(), user, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, article)
}

// AdminUpdate 整体替换保存
// PUT /api/admin/articles/:id
func (h *ArticleHandler) AdminUpdate(c *gin.Context) {
	var req service.SaveArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	article, err := h.articles.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// AdminDelete DELETE /api/admin/articles/:id
func (h *ArticleHandler) AdminDelete(c *gin.Context) {
	if err := h.articles.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Usage 计费汇总与明细，user_id 为空时统计全部用户
// GET /api/admin/usage
func (h *ArticleHandler) Usage(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Query("user_id")

	total, err := h.usage.Total(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	records, err := h.usage.List(ctx, userID, queryInt(c, "limit", 50))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "records": records})
}
