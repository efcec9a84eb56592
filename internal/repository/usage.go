package repository

import (
	"context"

	"github.com/gitroshpdx/finance-clarity-sub000/internal/model"
	"gorm.io/gorm"
)

// UsageRepository 计费记录仓储接口
type UsageRepository interface {
	Create(ctx context.Context, record *model.UsageRecord) error
	// Total 汇总用量，userID 为空时统计全部
	Total(ctx context.Context, userID string) (*model.UsageTotal, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]model.UsageRecord, error)
}

type usageRepository struct {
	db *gorm.DB
}

// NewUsageRepository 创建计费记录仓储
func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

// Create 新增计费记录
func (r *usageRepository) Create(ctx context.Context, record *model.UsageRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *usageRepository) Total(ctx context.Context, userID string) (*model.UsageTotal, error) {
	var result model.UsageTotal
	query := r.db.WithContext(ctx).Model(&model.UsageRecord{})
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	err := query.Select("COUNT(*) as count, COALESCE(SUM(cost_cents), 0) as total_cents").
		Scan(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *usageRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.UsageRecord, error) {
	var records []model.UsageRecord
	query := r.db.WithContext(ctx).Order("id DESC")
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}
