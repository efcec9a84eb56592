package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gitroshpdx/finance-clarity-sub000/config"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/handler"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖的全部 handler
type Handlers struct {
	Generate *handler.GenerateHandler
	Publish  *handler.PublishHandler
	Article  *handler.ArticleHandler
	Site     *handler.SiteHandler
}

func Setup(cfg *config.Config, h Handlers, gatherer prometheus.Gatherer) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/health", handler.Health)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	{
		// 公开读取接口，启用压缩
		public := api.Group("", gzip.Gzip(gzip.DefaultCompression))
		{
			public.GET("/sitemap", h.Site.Sitemap)
			public.GET("/sitemap-txt", h.Site.SitemapText)
			public.GET("/articles", h.Article.List)
			public.GET("/articles/:slug", h.Article.Get)
		}

		admin := api.Group("", middleware.AuthMiddleware(cfg.Auth.JWTSecret), middleware.RequireAdmin(cfg.Auth.AdminRole))
		{
			// 流式接口不能经过 gzip
			admin.POST("/generate-report", h.Generate.GenerateReport)
			admin.POST("/parse-article", h.Generate.ParseArticle)
			admin.POST("/auto-publish", h.Publish.AutoPublish)
			admin.POST("/one-click-publish", h.Publish.OneClickPublish)
			admin.POST("/get-analytics", h.Site.GetAnalytics)

			articles := admin.Group("/admin/articles")
			{
				articles.GET("", h.Article.AdminList)
				articles.POST("", h.Article.AdminCreate)
				articles.GET("/:id", h.Article.AdminGet)
				articles.PUT("/:id", h.Article.AdminUpdate)
				articles.DELETE("/:id", h.Article.AdminDelete)
			}
			admin.GET("/admin/usage", h.Article.Usage)
		}
	}

	return r
}
