package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gitroshpdx/finance-clarity-sub000/internal/eventbus"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/model"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/repository"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service/quality"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service/statemachine"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/utils"
	"gorm.io/datatypes"
	"k8s.io/klog/v2"
)

var (
	ErrArticleNotFound = errors.New("article not found")
	ErrValidation      = errors.New("validation error")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// SaveArticleRequest 文章整体保存请求，不支持局部更新
type SaveArticleRequest struct {
	Title            string   `json:"title" binding:"required,min=1,max=300"`
	Subtitle         string   `json:"subtitle"`
	Slug             string   `json:"slug"`
	Excerpt          string   `json:"excerpt"`
	Content          string   `json:"content"`
	Category         string   `json:"category" binding:"required"`
	Tags             []string `json:"tags"`
	RegionTags       []string `json:"region_tags"`
	Status           string   `json:"status"`
	AuthorName       string   `json:"author_name"`
	AuthorRole       string   `json:"author_role"`
	FeaturedImageURL string   `json:"featured_image_url"`
	SourceURLs       []string `json:"source_urls"`
	DataVerifiedAt   string   `json:"data_verified_at"`
}

// ArticleService 文章服务接口
type ArticleService interface {
	Get(ctx context.Context, id string) (*model.Article, error)
	GetBySlug(ctx context.Context, slug string) (*model.Article, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*model.Article, error)
	List(ctx context.Context, filter repository.ArticleFilter) ([]model.Article, error)
	ListPublished(ctx context.Context, category string, limit, offset int) ([]model.Article, error)
	Create(ctx context.Context, authorID string, req SaveArticleRequest) (*model.Article, error)
	Update(ctx context.Context, id string, req SaveArticleRequest) (*model.Article, error)
	Delete(ctx context.Context, id string) error
}

type articleService struct {
	repo   repository.ArticleRepository
	bus    *eventbus.ArticleEventBus
	scorer *quality.Scorer
	sm     *statemachine.ArticleStateMachine
	now    func() time.Time
}

// NewArticleService 创建文章服务，编辑保存时重新计算质量分用于审计
func NewArticleService(repo repository.ArticleRepository, bus *eventbus.ArticleEventBus, scorer *quality.Scorer) ArticleService {
	return &articleService{
		repo:   repo,
		bus:    bus,
		scorer: scorer,
		sm:     statemachine.NewArticleStateMachine(),
		now:    time.Now,
	}
}

func (s *articleService) Get(ctx context.Context, id string) (*model.Article, error) {
	article, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return article, nil
}

func (s *articleService) GetBySlug(ctx context.Context, slug string) (*model.Article, error) {
	article, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return article, nil
}

// GetPublishedBySlug 公开读取，草稿视为不存在
func (s *articleService) GetPublishedBySlug(ctx context.Context, slug string) (*model.Article, error) {
	article, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !article.IsPublished() {
		return nil, ErrArticleNotFound
	}
	return article, nil
}

func (s *articleService) List(ctx context.Context, filter repository.ArticleFilter) ([]model.Article, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.repo.List(ctx, filter)
}

func (s *articleService) ListPublished(ctx context.Context, category string, limit, offset int) ([]model.Article, error) {
	return s.List(ctx, repository.ArticleFilter{
		Status:   model.ArticleStatusPublished,
		Category: category,
		Limit:    limit,
		Offset:   offset,
	})
}

// Create 编辑手工创建文章
func (s *articleService) Create(ctx context.Context, authorID string, req SaveArticleRequest) (*model.Article, error) {
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = utils.Slugify(req.Title)
	}
	if !utils.IsValidSlug(slug) {
		return nil, validationError("invalid slug %q", slug)
	}

	article := &model.Article{Slug: slug, AuthorID: authorID}
	if err := s.apply(article, req, model.ArticleStatusDraft); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, article); err != nil {
		klog.Errorf("创建文章失败: slug=%s, error=%v", slug, err)
		return nil, err
	}
	klog.V(6).Infof("创建文章成功: id=%s, slug=%s, status=%s", article.ID, article.Slug, article.Status)
	s.publishEvents(ctx, article, model.ArticleStatusDraft)
	return article, nil
}

// Update 整体替换保存，slug 不可修改
func (s *articleService) Update(ctx context.Context, id string, req SaveArticleRequest) (*model.Article, error) {
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if slug := strings.TrimSpace(req.Slug); slug != "" && slug != article.Slug {
		return nil, validationError("slug is immutable: %s", article.Slug)
	}

	previous := article.Status
	if err := s.apply(article, req, previous); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, article); err != nil {
		klog.Errorf("保存文章失败: id=%s, error=%v", id, err)
		return nil, err
	}
	klog.V(6).Infof("保存文章成功: id=%s, slug=%s, status=%s", article.ID, article.Slug, article.Status)
	s.publishEvents(ctx, article, previous)
	return article, nil
}

func (s *articleService) Delete(ctx context.Context, id string) error {
	article, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrArticleNotFound
		}
		return fmt.Errorf("failed to delete article: %w", err)
	}
	klog.V(6).Infof("删除文章成功: id=%s, slug=%s", id, article.Slug)
	if s.bus != nil {
		err := s.bus.Publish(ctx, eventbus.ArticleEvent{
			Type:      eventbus.ArticleEventDeleted,
			ArticleID: article.ID,
			Slug:      article.Slug,
			Category:  article.Category,
			Workflow:  "admin",
		})
		if err != nil {
			klog.Warningf("文章事件处理失败: type=%s, id=%s, error=%v", eventbus.ArticleEventDeleted, id, err)
		}
	}
	return nil
}

// apply 将请求写入文章并维护状态与发布时间的一致性
func (s *articleService) apply(article *model.Article, req SaveArticleRequest, from string) error {
	if strings.TrimSpace(req.Title) == "" {
		return validationError("title is required")
	}
	if !model.IsValidCategory(req.Category) {
		return validationError("unknown category %q", req.Category)
	}
	status := req.Status
	if status == "" {
		status = from
	}
	if err := s.sm.Transition(statemachine.ArticleStatus(from), statemachine.ArticleStatus(status), article.ID); err != nil {
		return validationError("%v", err)
	}

	article.Title = strings.TrimSpace(req.Title)
	article.Subtitle = req.Subtitle
	article.Excerpt = req.Excerpt
	article.Content = req.Content
	article.Category = req.Category
	article.Tags = req.Tags
	article.RegionTags = req.RegionTags
	article.FeaturedImageURL = req.FeaturedImageURL
	article.SourceURLs = req.SourceURLs
	article.DataVerifiedAt = req.DataVerifiedAt
	if req.AuthorName != "" {
		article.AuthorName = req.AuthorName
	}
	if req.AuthorRole != "" {
		article.AuthorRole = req.AuthorRole
	}
	article.Status = status
	ApplyPublishState(article, s.now())
	s.snapshotQuality(article)
	return nil
}

// snapshotQuality 保存时的质量分快照，不作为编辑发布的门槛
func (s *articleService) snapshotQuality(article *model.Article) {
	if s.scorer == nil {
		return
	}
	eeat := quality.CheckEEAT(quality.EEATInput{
		Body:           article.Content,
		SourceURLs:     article.SourceURLs,
		DataVerifiedAt: article.DataVerifiedAt,
	})
	result := s.scorer.Score(article.Content, article.SourceURLs, eeat)
	score := result.OverallScore
	article.QualityScore = &score
	article.QualitySnapshot = datatypes.JSON(utils.ToJSON(result))
	article.EEATSnapshot = datatypes.JSON(utils.ToJSON(eeat))
}

// ApplyPublishState published_at 非空当且仅当状态为 published
func ApplyPublishState(article *model.Article, now time.Time) {
	if article.Status == model.ArticleStatusPublished {
		if article.PublishedAt == nil {
			t := now
			article.PublishedAt = &t
		}
		return
	}
	article.PublishedAt = nil
}

func (s *articleService) publishEvents(ctx context.Context, article *model.Article, from string) {
	if s.bus == nil {
		return
	}
	event := eventbus.ArticleEvent{
		Type:      eventbus.ArticleEventSaved,
		ArticleID: article.ID,
		Slug:      article.Slug,
		Category:  article.Category,
		Workflow:  "admin",
	}
	if article.QualityScore != nil {
		event.QualityScore = *article.QualityScore
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		klog.Warningf("文章事件处理失败: type=%s, id=%s, error=%v", event.Type, article.ID, err)
	}
	if article.IsPublished() && from != model.ArticleStatusPublished {
		event.Type = eventbus.ArticleEventPublished
		if err := s.bus.Publish(ctx, event); err != nil {
			klog.Warningf("文章事件处理失败: type=%s, id=%s, error=%v", event.Type, article.ID, err)
		}
	}
}
