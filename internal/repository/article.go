package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gitroshpdx/finance-clarity-sub000/internal/model"
	"gorm.io/gorm"
)

// ArticleFilter 文章列表过滤条件
type ArticleFilter struct {
	Status   string
	Category string
	Limit    int
	Offset   int
}

// ArticleRepository 文章仓储接口
type ArticleRepository interface {
	// Create 插入新文章，slug 重复返回 ErrDuplicateSlug
	Create(ctx context.Context, article *model.Article) error

	// Save 整行覆盖保存
	Save(ctx context.Context, article *model.Article) error

	// Get 根据 ID 获取
	Get(ctx context.Context, id string) (*model.Article, error)

	// GetBySlug 根据 slug 获取
	GetBySlug(ctx context.Context, slug string) (*model.Article, error)

	// SlugExists 判断 slug 是否已被占用
	SlugExists(ctx context.Context, slug string) (bool, error)

	// List 按条件列出文章（发布时间、创建时间倒序）
	List(ctx context.Context, filter ArticleFilter) ([]model.Article, error)

	// Delete 硬删除
	Delete(ctx context.Context, id string) error
}

type articleRepository struct {
	db *gorm.DB
}

// NewArticleRepository 创建文章仓储
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) Create(ctx context.Context, article *model.Article) error {
	exists, err := r.SlugExists(ctx, article.Slug)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateSlug
	}
	if err := r.db.WithContext(ctx).Create(article).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return err
	}
	return nil
}

func (r *articleRepository) Save(ctx context.Context, article *model.Article) error {
	if err := r.db.WithContext(ctx).Save(article).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return err
	}
	return nil
}

func (r *articleRepository) Get(ctx context.Context, id string) (*model.Article, error) {
	var article model.Article
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&article).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &article, nil
}

func (r *articleRepository) GetBySlug(ctx context.Context, slug string) (*model.Article, error) {
	var article model.Article
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&article).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &article, nil
}

func (r *articleRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Article{}).
		Where("slug = ?", slug).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *articleRepository) List(ctx context.Context, filter ArticleFilter) ([]model.Article, error) {
	var articles []model.Article
	query := r.db.WithContext(ctx).Model(&model.Article{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	err := query.Order("published_at DESC, created_at DESC").Find(&articles).Error
	return articles, err
}

func (r *articleRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Article{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation 识别各数据库的唯一约束冲突
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}

// SourceRepository 来源 URL 仓储接口
type SourceRepository interface {
	CreateBatch(ctx context.Context, sources []model.ArticleSource) error
	GetByArticleID(ctx context.Context, articleID string) ([]model.ArticleSource, error)
	// UsedSince 返回 urls 中自 since 起已被使用过的 URL
	UsedSince(ctx context.Context, urls []string, since time.Time) (map[string]bool, error)
}

type sourceRepository struct {
	db *gorm.DB
}

// NewSourceRepository 创建来源仓储
func NewSourceRepository(db *gorm.DB) SourceRepository {
	return &sourceRepository{db: db}
}

func (r *sourceRepository) CreateBatch(ctx context.Context, sources []model.ArticleSource) error {
	if len(sources) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&sources).Error
}

func (r *sourceRepository) GetByArticleID(ctx context.Context, articleID string) ([]model.ArticleSource, error) {
	var sources []model.ArticleSource
	err := r.db.WithContext(ctx).Where("article_id = ?", articleID).Order("id").Find(&sources).Error
	return sources, err
}

func (r *sourceRepository) UsedSince(ctx context.Context, urls []string, since time.Time) (map[string]bool, error) {
	used := make(map[string]bool)
	if len(urls) == 0 {
		return used, nil
	}
	var found []string
	err := r.db.WithContext(ctx).
		Model(&model.ArticleSource{}).
		Where("url IN ? AND created_at >= ?", urls, since).
		Distinct().
		Pluck("url", &found).Error
	if err != nil {
		return nil, err
	}
	for _, u := range found {
		used[u] = true
	}
	return used, nil
}
