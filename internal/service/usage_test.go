package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/model"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/repository"
	"gorm.io/gorm"
)

type mockUsageRepo struct {
	CreateFunc   func(ctx context.Context, record *model.UsageRecord) error
	CreateCalled int
	LastRecord   *model.UsageRecord
	LastLimit    int
}

func (m *mockUsageRepo) Create(ctx context.Context, record *model.UsageRecord) error {
	m.CreateCalled++
	m.LastRecord = record
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, record)
	}
	return nil
}

func (m *mockUsageRepo) Total(ctx context.Context, userID string) (*model.UsageTotal, error) {
	return &model.UsageTotal{Count: 2, TotalCents: 100}, nil
}

func (m *mockUsageRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.UsageRecord, error) {
	m.LastLimit = limit
	return nil, nil
}

// TestUsageServiceRecordCharge 验证计费记录字段
func TestUsageServiceRecordCharge(t *testing.T) {
	repo := &mockUsageRepo{}
	svc := NewUsageService(repo, 50)

	record, err := svc.RecordCharge(context.Background(), Charge{
		UserID:    "u1",
		Feature:   model.FeatureAutoPublish,
		ArticleID: "a1",
		RunID:     "run-1",
		Usage:     &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	})
	if err != nil {
		t.Fatalf("RecordCharge error: %v", err)
	}
	if repo.CreateCalled != 1 {
		t.Fatalf("expected Create called once, got %d", repo.CreateCalled)
	}
	if record.CostCents != 50 || record.UserID != "u1" || record.RunID != "run-1" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.ArticleID == nil || *record.ArticleID != "a1" {
		t.Fatalf("expected article link, got %v", record.ArticleID)
	}
	if record.PromptTokens != 10 || record.CompletionTokens != 20 || record.TotalTokens != 30 {
		t.Fatalf("unexpected token counts: %+v", record)
	}
}

// TestUsageServiceRecordChargeWithoutUsage token 用量为空时仍然计费
func TestUsageServiceRecordChargeWithoutUsage(t *testing.T) {
	repo := &mockUsageRepo{}
	record, err := NewUsageService(repo, 50).RecordCharge(context.Background(), Charge{UserID: "u1", Feature: model.FeatureOneClickPublish})
	if err != nil {
		t.Fatalf("RecordCharge error: %v", err)
	}
	if record.ArticleID != nil || record.TotalTokens != 0 {
		t.Fatalf("unexpected record: %+v", record)
	}
}

// TestUsageServiceRecordChargeInvalid 参数不合法时不写入
func TestUsageServiceRecordChargeInvalid(t *testing.T) {
	repo := &mockUsageRepo{}
	svc := NewUsageService(repo, 50)

	if _, err := svc.RecordCharge(context.Background(), Charge{Feature: model.FeatureAutoPublish}); err == nil {
		t.Fatalf("expected error for empty user")
	}
	if _, err := svc.RecordCharge(context.Background(), Charge{UserID: "u1", Feature: "preview"}); err == nil {
		t.Fatalf("expected error for unknown feature")
	}
	if repo.CreateCalled != 0 {
		t.Fatalf("expected no writes, got %d", repo.CreateCalled)
	}
}

// TestUsageServiceRecordChargeRepoError 仓储错误透传
func TestUsageServiceRecordChargeRepoError(t *testing.T) {
	repoErr := errors.New("db down")
	repo := &mockUsageRepo{CreateFunc: func(ctx context.Context, record *model.UsageRecord) error { return repoErr }}

	_, err := NewUsageService(repo, 50).RecordCharge(context.Background(), Charge{UserID: "u1", Feature: model.FeatureAutoPublish})
	if !errors.Is(err, repoErr) {
		t.Fatalf("expected repo error, got %v", err)
	}
}

func TestUsageServiceListClampsLimit(t *testing.T) {
	repo := &mockUsageRepo{}
	svc := NewUsageService(repo, 50)

	if _, err := svc.List(context.Background(), "", 1000); err != nil {
		t.Fatalf("List error: %v", err)
	}
	if repo.LastLimit != 50 {
		t.Fatalf("expected limit 50, got %d", repo.LastLimit)
	}
}

// TestUsageServiceWithDBFollowsTransaction 事务回滚时计费记录一并撤销
func TestUsageServiceWithDBFollowsTransaction(t *testing.T) {
	db := openTestDB(t)
	svc := NewUsageService(repository.NewUsageRepository(db), 50)
	rollback := errors.New("rollback")

	err := db.Transaction(func(tx *gorm.DB) error {
		record, err := svc.WithDB(tx).RecordCharge(context.Background(), Charge{UserID: "u1", Feature: model.FeatureAutoPublish})
		if err != nil {
			return err
		}
		if record.CostCents != 50 {
			t.Fatalf("expected cost 50, got %d", record.CostCents)
		}
		return rollback
	})
	if !errors.Is(err, rollback) {
		t.Fatalf("expected rollback error, got %v", err)
	}

	total, err := svc.Total(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Total error: %v", err)
	}
	if total.Count != 0 {
		t.Fatalf("expected no records after rollback, got %d", total.Count)
	}
}
