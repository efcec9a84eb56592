package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"k8s.io/klog/v2"

	"github.com/gitroshpdx/finance-clarity-sub000/config"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/eventbus"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/handler"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/middleware"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/database"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/llm"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/metrics"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/search"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/repository"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/router"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service/generator"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service/publisher"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service/quality"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service/sourcing"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/subscriber"
)

func main() {
	issueToken := flag.String("issue-token", "", "签发管理员 token 后退出，参数为用户名")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "签发 token 的有效期")

	// 初始化 klog
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	cfg := config.GetConfig()

	if *issueToken != "" {
		token, err := middleware.GenerateToken(cfg.Auth.JWTSecret, *issueToken, []string{cfg.Auth.AdminRole}, *tokenTTL)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	klog.V(6).Info("服务启动中...")
	if cfg.Auth.JWTSecret == "" {
		klog.Warning("未配置 JWT_SECRET，所有管理接口都将返回 401")
	}

	// 初始化数据库，配置了服务账号连接串时使用服务账号
	db, err := database.InitDB(cfg.Database.Type, cfg.Database.WriteDSN())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 初始化 Repository
	articleRepo := repository.NewArticleRepository(db)
	sourceRepo := repository.NewSourceRepository(db)
	usageRepo := repository.NewUsageRepository(db)

	// 指标与事件
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	bus := eventbus.NewArticleEventBus()
	subscriber.NewArticleEventSubscriber(m).Register(bus)

	// 初始化 Service
	scorer := quality.NewScorer(quality.ThresholdsFromConfig(cfg.Quality))
	gen := generator.New(llm.NewClient(cfg))
	adapter := sourcing.NewAdapter(cfg, search.NewClient(cfg), sourceRepo)
	usageService := service.NewUsageService(usageRepo, cfg.Billing.CostPerActionCents)
	articleService := service.NewArticleService(articleRepo, bus, scorer)
	pub := publisher.New(publisher.Deps{
		Sources:   adapter,
		Generator: gen,
		Scorer:    scorer,
		Articles:  articleRepo,
		SourceDB:  sourceRepo,
		Usage:     usageService,
		DB:        db,
		Bus:       bus,
		Metrics:   m,
	})

	// 初始化 Handler
	handlers := router.Handlers{
		Generate: handler.NewGenerateHandler(gen),
		Publish:  handler.NewPublishHandler(pub),
		Article:  handler.NewArticleHandler(articleService, usageService),
		Site: handler.NewSiteHandler(
			service.NewSitemapService(articleRepo, cfg.Server.SiteURL),
			service.NewAnalyticsService(cfg.Analytics),
		),
	}

	// 设置路由
	r := router.Setup(cfg, handlers, reg)

	log.Printf("Server starting on port %s...", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
