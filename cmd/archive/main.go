package main

import (
	"context"
	"flag"
	"log"
	"time"

	"k8s.io/klog/v2"

	"github.com/gitroshpdx/finance-clarity-sub000/config"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/model"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/archive"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/database"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/repository"
)

const pageSize = 200

// 导出全部已发布文章到 S3 兼容存储，执行一次后退出
func main() {
	timeout := flag.Duration("timeout", 10*time.Minute, "导出超时时间")

	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	cfg := config.GetConfig()
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	articles, err := publishedArticles(ctx, repository.NewArticleRepository(db))
	if err != nil {
		log.Fatalf("Failed to list articles: %v", err)
	}

	client, err := archive.NewS3Client(ctx, cfg.Archive)
	if err != nil {
		log.Fatalf("Failed to create s3 client: %v", err)
	}
	key, err := archive.NewExporter(client, cfg.Archive.Bucket, cfg.Archive.Prefix).Export(ctx, articles)
	if err != nil {
		log.Fatalf("Failed to export articles: %v", err)
	}
	klog.Infof("导出完成: bucket=%s, key=%s, count=%d", cfg.Archive.Bucket, key, len(articles))
}

func publishedArticles(ctx context.Context, repo repository.ArticleRepository) ([]model.Article, error) {
	var all []model.Article
	for offset := 0; ; offset += pageSize {
		page, err := repo.List(ctx, repository.ArticleFilter{
			Status: model.ArticleStatusPublished,
			Limit:  pageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}
