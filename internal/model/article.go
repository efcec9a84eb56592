package model

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 文章状态
const (
	ArticleStatusDraft     = "draft"
	ArticleStatusPublished = "published"
)

// Article 文章/报告，站点内容的基本单元
type Article struct {
	ID               string                      `json:"id" gorm:"primaryKey;size:36"`
	Slug             string                      `json:"slug" gorm:"size:120;uniqueIndex;not null"`
	Title            string                      `json:"title" gorm:"size:300;not null"`
	Subtitle         string                      `json:"subtitle" gorm:"size:500"`
	Excerpt          string                      `json:"excerpt" gorm:"size:1000"`
	Content          string                      `json:"content" gorm:"type:text"`
	Category         string                      `json:"category" gorm:"size:50;index;not null"`
	Tags             datatypes.JSONSlice[string] `json:"tags"`
	RegionTags       datatypes.JSONSlice[string] `json:"region_tags"`
	Status           string                      `json:"status" gorm:"size:20;index;default:draft"` // draft, published
	WordCount        int                         `json:"word_count" gorm:"default:0"`
	PublishedAt      *time.Time                  `json:"published_at" gorm:"index"`
	AuthorID         string                      `json:"author_id" gorm:"size:64"`
	AuthorName       string                      `json:"author_name" gorm:"size:255"`
	AuthorRole       string                      `json:"author_role" gorm:"size:100"`
	FeaturedImageURL string                      `json:"featured_image_url" gorm:"size:1000"`
	SourceURLs       datatypes.JSONSlice[string] `json:"source_urls"`
	DataVerifiedAt   string                      `json:"data_verified_at" gorm:"size:64"`
	QualityScore     *int                        `json:"quality_score"`
	QualitySnapshot  datatypes.JSON              `json:"quality_snapshot,omitempty"`
	EEATSnapshot     datatypes.JSON              `json:"eeat_snapshot,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

// BeforeCreate GORM 钩子：分配 UUID
func (a *Article) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// BeforeSave GORM 钩子：每次保存都根据正文重新计算字数
func (a *Article) BeforeSave(tx *gorm.DB) error {
	a.WordCount = CountWords(a.Content)
	return nil
}

// IsPublished 是否已发布
func (a *Article) IsPublished() bool {
	return a.Status == ArticleStatusPublished
}

// ArticleSource 文章使用过的来源 URL，用于近期去重
type ArticleSource struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ArticleID string    `json:"article_id" gorm:"size:36;index;not null"`
	URL       string    `json:"url" gorm:"size:1000;index;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// CountWords 按空白切分统计字数
func CountWords(content string) int {
	return len(strings.FieldsFunc(content, unicode.IsSpace))
}
