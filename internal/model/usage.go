package model

import "time"

// 计费功能标识
const (
	FeatureAutoPublish     = "auto-publish"
	FeatureOneClickPublish = "one-click-publish"
)

// UsageRecord 特权生成操作的计费记录，只增不改
type UsageRecord struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	UserID           string    `json:"user_id" gorm:"size:64;index;not null"`
	Feature          string    `json:"feature" gorm:"size:50;index;not null"`
	CostCents        int       `json:"cost_cents" gorm:"not null"`
	ArticleID        *string   `json:"article_id" gorm:"size:36;index"`
	RunID            string    `json:"run_id" gorm:"size:36"`
	PromptTokens     int       `json:"prompt_tokens" gorm:"default:0"`
	CompletionTokens int       `json:"completion_tokens" gorm:"default:0"`
	TotalTokens      int       `json:"total_tokens" gorm:"default:0"`
	CreatedAt        time.Time `json:"created_at" gorm:"index"`
}

// UsageTotal 用量汇总
type UsageTotal struct {
	Count      int64 `json:"count"`
	TotalCents int64 `json:"total_cents"`
}
