package service

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/model"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/repository"
	"gorm.io/gorm"
	"k8s.io/klog/v2"
)

// Charge 一次计费的参数
type Charge struct {
	UserID    string
	Feature   string
	ArticleID string
	RunID     string
	Usage     *schema.TokenUsage
}

// UsageService 计费服务接口
type UsageService interface {
	RecordCharge(ctx context.Context, charge Charge) (*model.UsageRecord, error)
	Total(ctx context.Context, userID string) (*model.UsageTotal, error)
	List(ctx context.Context, userID string, limit int) ([]model.UsageRecord, error)
	// WithDB 返回绑定到指定连接的计费服务，事务内计费时使用
	WithDB(db *gorm.DB) UsageService
}

type usageService struct {
	repo      repository.UsageRepository
	costCents int
}

// NewUsageService 创建计费服务，每次操作固定费用
func NewUsageService(repo repository.UsageRepository, costCents int) UsageService {
	return &usageService{repo: repo, costCents: costCents}
}

func (s *usageService) WithDB(db *gorm.DB) UsageService {
	return &usageService{repo: repository.NewUsageRepository(db), costCents: s.costCents}
}

// RecordCharge 记录一次特权生成操作
func (s *usageService) RecordCharge(ctx context.Context, charge Charge) (*model.UsageRecord, error) {
	if charge.UserID == "" {
		klog.V(6).Infof("计费记录失败：userID 为空")
		return nil, fmt.Errorf("userID is required")
	}
	if charge.Feature != model.FeatureAutoPublish && charge.Feature != model.FeatureOneClickPublish {
		return nil, fmt.Errorf("unknown feature: %s", charge.Feature)
	}

	record := &model.UsageRecord{
		UserID:    charge.UserID,
		Feature:   charge.Feature,
		CostCents: s.costCents,
		RunID:     charge.RunID,
	}
	if charge.ArticleID != "" {
		articleID := charge.ArticleID
		record.ArticleID = &articleID
	}
	// 将 SDK 的 usage 结构映射为数据库模型字段
	if charge.Usage != nil {
		record.PromptTokens = charge.Usage.PromptTokens
		record.CompletionTokens = charge.Usage.CompletionTokens
		record.TotalTokens = charge.Usage.TotalTokens
	}

	if err := s.repo.Create(ctx, record); err != nil {
		klog.Errorf("计费记录失败：userID=%s, feature=%s, runID=%s, err=%v", charge.UserID, charge.Feature, charge.RunID, err)
		return nil, err
	}
	klog.V(6).Infof("计费记录成功：userID=%s, feature=%s, cost=%d, runID=%s", charge.UserID, charge.Feature, s.costCents, charge.RunID)
	return record, nil
}

// Total 用户累计费用，userID 为空时统计全部用户
func (s *usageService) Total(ctx context.Context, userID string) (*model.UsageTotal, error) {
	return s.repo.Total(ctx, userID)
}

func (s *usageService) List(ctx context.Context, userID string, limit int) ([]model.UsageRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit)
}
