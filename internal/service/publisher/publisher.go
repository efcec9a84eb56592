package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/eventbus"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/model"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/metrics"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/search"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/repository"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service/generator"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service/quality"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service/sourcing"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/service/statemachine"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"k8s.io/klog/v2"
)

const (
	WorkflowAutoPublish     = model.FeatureAutoPublish
	WorkflowOneClickPublish = model.FeatureOneClickPublish

	defaultAuthorName = "Finance Clarity Research Desk"
	defaultAuthorRole = "Markets Analyst"
)

// SourceFetcher 新闻素材来源
type SourceFetcher interface {
	FetchSources(ctx context.Context, category string) ([]search.Result, error)
	UsedURLs(ctx context.Context, urls []string) (map[string]bool, error)
}

// DraftGenerator 结构化草稿生成
type DraftGenerator interface {
	GenerateDraft(ctx context.Context, req generator.DraftRequest) (*generator.Draft, *schema.TokenUsage, error)
}

// Deps 编排器依赖
type Deps struct {
	Sources   SourceFetcher
	Generator DraftGenerator
	Scorer    *quality.Scorer
	Articles  repository.ArticleRepository
	SourceDB  repository.SourceRepository
	Usage     service.UsageService
	// DB 非空时文章、来源与计费记录在同一事务内写入
	DB        *gorm.DB
	Bus       *eventbus.ArticleEventBus
	Metrics   *metrics.Metrics
}

// Publisher 发布编排器
type Publisher struct {
	sources   SourceFetcher
	generator DraftGenerator
	scorer    *quality.Scorer
	articles  repository.ArticleRepository
	sourceDB  repository.SourceRepository
	usage     service.UsageService
	db        *gorm.DB
	bus       *eventbus.ArticleEventBus
	metrics   *metrics.Metrics
	now       func() time.Time
}

// New 创建发布编排器
func New(deps Deps) *Publisher {
	scorer := deps.Scorer
	if scorer == nil {
		scorer = quality.NewScorer(quality.DefaultThresholds())
	}
	return &Publisher{
		sources:   deps.Sources,
		generator: deps.Generator,
		scorer:    scorer,
		articles:  deps.Articles,
		sourceDB:  deps.SourceDB,
		usage:     deps.Usage,
		db:        deps.DB,
		bus:       deps.Bus,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
}

// AutoPublishRequest auto-publish 请求
type AutoPublishRequest struct {
	RawNewsData   string            `json:"raw_news_data"`
	PublishDate   string            `json:"publish_date"`
	RegionTags    []string          `json:"region_tags"`
	MarketContext map[string]string `json:"market_context"`
	AutoPublish   *bool             `json:"auto_publish"`
	Category      string            `json:"category"`
}

// AutoPublishResult auto-publish 响应
type AutoPublishResult struct {
	Success    bool                `json:"success"`
	Article    *generator.Draft    `json:"article"`
	Published  bool                `json:"published"`
	ReportID   string              `json:"report_id"`
	ReportSlug string              `json:"report_slug"`
	Quality    quality.Result      `json:"quality"`
	EEAT       quality.EEATSignals `json:"eeat"`
	RunID      string              `json:"run_id"`
}

// PreviewPayload 一键发布预览结果，不落库
type PreviewPayload struct {
	Draft          *generator.Draft    `json:"draft"`
	Excerpt        string              `json:"excerpt"`
	Quality        quality.Result      `json:"quality"`
	EEAT           quality.EEATSignals `json:"eeat"`
	CanPublish     bool                `json:"canPublish"`
	SourceURLs     []string            `json:"sourceUrls"`
	DataVerifiedAt string              `json:"dataVerifiedAt"`
	RunID          string              `json:"runId"`
}

// PublishData 人工审阅后提交的完整文章
type PublishData struct {
	Title            string   `json:"title"`
	Subtitle         string   `json:"subtitle"`
	Slug             string   `json:"slug"`
	Excerpt          string   `json:"excerpt"`
	Content          string   `json:"content"`
	Category         string   `json:"category"`
	Tags             []string `json:"tags"`
	RegionTags       []string `json:"regionTags"`
	SourceURLs       []string `json:"sourceUrls"`
	Status           string   `json:"status"`
	DataVerifiedAt   string   `json:"dataVerifiedAt"`
	FeaturedImageURL string   `json:"featuredImageUrl"`
	AuthorName       string   `json:"authorName"`
	AuthorRole       string   `json:"authorRole"`
}

// PublishedArticle 提交成功后的文章摘要
type PublishedArticle struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Category  string `json:"category"`
	WordCount int    `json:"wordCount"`
}

// AutoPublish 直接使用调用方提供的原始新闻生成并保存
// 评分总是执行；只有 auto_publish 为真且分数达到门槛时状态为 published，否则保存为草稿
func (p *Publisher) AutoPublish(ctx context.Context, userID string, req AutoPublishRequest) (*AutoPublishResult, error) {
	if strings.TrimSpace(req.RawNewsData) == "" {
		return nil, validationError("raw_news_data is required")
	}
	if req.Category != "" && !model.IsValidCategory(req.Category) {
		return nil, validationError("unknown category %q", req.Category)
	}

	run, err := statemachine.NewRun(WorkflowAutoPublish, statemachine.StageGenerating)
	if err != nil {
		return nil, err
	}

	publishDate := strings.TrimSpace(req.PublishDate)
	if publishDate == "" {
		publishDate = p.now().Format(time.DateOnly)
	}

	draft, usage, err := p.generator.GenerateDraft(ctx, generator.DraftRequest{
		RawText:       req.RawNewsData,
		Category:      req.Category,
		RegionTags:    req.RegionTags,
		MarketContext: req.MarketContext,
		PublishDate:   publishDate,
	})
	if err != nil {
		return nil, p.fail(run, generationKind(err), err)
	}
	if len(draft.RegionTags) == 0 {
		draft.RegionTags = req.RegionTags
	}

	if err := p.advance(run, statemachine.StageScoring); err != nil {
		return nil, err
	}
	result, eeat := p.score(draft.Content, draft.Sources, publishDate)
	p.metrics.ObserveScore(run.Workflow, result.OverallScore)

	if err := p.advance(run, statemachine.StagePersisting); err != nil {
		return nil, err
	}
	publish := req.AutoPublish == nil || *req.AutoPublish
	status := model.ArticleStatusDraft
	if publish && p.scorer.CanPublish(result.OverallScore) {
		status = model.ArticleStatusPublished
	} else if publish {
		klog.Warningf("质量分未达到发布门槛，保存为草稿: runID=%s, score=%d, threshold=%d",
			run.ID, result.OverallScore, p.scorer.Thresholds.PublishThreshold)
	}

	slug := resolveSlug(draft.Slug, draft.Title)
	if slug == "" {
		return nil, p.fail(run, KindValidation, fmt.Errorf("cannot derive slug from title %q", draft.Title))
	}
	_, excerpt := generator.ExtractTitleAndExcerpt(draft.Content)
	if excerpt == "" {
		excerpt = draft.Subtitle
	}

	article := &model.Article{
		Slug:           slug,
		Title:          draft.Title,
		Subtitle:       draft.Subtitle,
		Excerpt:        excerpt,
		Content:        draft.Content,
		Category:       draft.Category,
		Tags:           draft.SEOKeywords,
		RegionTags:     draft.RegionTags,
		Status:         status,
		AuthorID:       userID,
		AuthorName:     defaultAuthorName,
		AuthorRole:     defaultAuthorRole,
		SourceURLs:     draft.Sources,
		DataVerifiedAt: publishDate,
	}
	if err := p.persist(ctx, run, userID, article, result, eeat, usage); err != nil {
		return nil, err
	}

	draft.Slug = article.Slug
	return &AutoPublishResult{
		Success:    true,
		Article:    draft,
		Published:  article.IsPublished(),
		ReportID:   article.ID,
		ReportSlug: article.Slug,
		Quality:    result,
		EEAT:       eeat,
		RunID:      run.ID,
	}, nil
}

// Preview 抓取素材、生成并评分，停在 gated 阶段等待人工决定
func (p *Publisher) Preview(ctx context.Context, userID, category string) (*PreviewPayload, error) {
	if !model.IsValidCategory(category) {
		return nil, validationError("unknown category %q", category)
	}

	run, err := statemachine.NewRun(WorkflowOneClickPublish, statemachine.StageSourcing)
	if err != nil {
		return nil, err
	}
	klog.V(6).Infof("一键发布预览: userID=%s, category=%s, runID=%s", userID, category, run.ID)

	results, err := p.sources.FetchSources(ctx, category)
	if err != nil {
		return nil, p.fail(run, sourcingKind(err), err)
	}
	sourceURLs := sourcing.SourceURLs(results)

	if err := p.advance(run, statemachine.StageGenerating); err != nil {
		return nil, err
	}
	verifiedAt := p.now().Format(time.DateOnly)
	draft, _, err := p.generator.GenerateDraft(ctx, generator.DraftRequest{
		RawText:     sourcing.CombineSources(results),
		Category:    category,
		PublishDate: verifiedAt,
	})
	if err != nil {
		return nil, p.fail(run, generationKind(err), err)
	}
	// 引用以实际抓取的 URL 为准
	draft.Sources = sourceURLs
	if !utils.IsValidSlug(draft.Slug) {
		draft.Slug = resolveSlug(draft.Slug, draft.Title)
	}

	if err := p.advance(run, statemachine.StageScoring); err != nil {
		return nil, err
	}
	result, eeat := p.score(draft.Content, sourceURLs, verifiedAt)
	p.metrics.ObserveScore(run.Workflow, result.OverallScore)

	if err := p.advance(run, statemachine.StageGated); err != nil {
		return nil, err
	}
	_, excerpt := generator.ExtractTitleAndExcerpt(draft.Content)
	if excerpt == "" && len(draft.Summary) > 0 {
		excerpt = draft.Summary[0]
	}
	payload := &PreviewPayload{
		Draft:          draft,
		Excerpt:        excerpt,
		Quality:        result,
		EEAT:           eeat,
		CanPublish:     p.scorer.CanPublish(result.OverallScore),
		SourceURLs:     sourceURLs,
		DataVerifiedAt: verifiedAt,
		RunID:          run.ID,
	}

	if err := p.advance(run, statemachine.StageDone); err != nil {
		return nil, err
	}
	p.metrics.ObserveRun(run.Workflow, "gated")
	return payload, nil
}

// PublishPrepared 保存人工审阅后的文章，重新评分并复查来源去重
func (p *Publisher) PublishPrepared(ctx context.Context, userID string, data PublishData) (*PublishedArticle, error) {
	if strings.TrimSpace(data.Title) == "" {
		return nil, validationError("title is required")
	}
	if strings.TrimSpace(data.Content) == "" {
		return nil, validationError("content is required")
	}
	if !model.IsValidCategory(data.Category) {
		return nil, validationError("unknown category %q", data.Category)
	}
	status := data.Status
	if status == "" {
		status = model.ArticleStatusDraft
	}
	if !statemachine.NewArticleStateMachine().IsValid(statemachine.ArticleStatus(status)) {
		return nil, validationError("unknown status %q", data.Status)
	}
	slug := resolveSlug(data.Slug, data.Title)
	if slug == "" {
		return nil, validationError("cannot derive slug from title %q", data.Title)
	}

	run, err := statemachine.NewRun(WorkflowOneClickPublish, statemachine.StagePersisting)
	if err != nil {
		return nil, err
	}

	result, eeat := p.score(data.Content, data.SourceURLs, data.DataVerifiedAt)
	p.metrics.ObserveScore(run.Workflow, result.OverallScore)
	if status == model.ArticleStatusPublished && !p.scorer.CanPublish(result.OverallScore) {
		return nil, p.fail(run, KindValidation, fmt.Errorf("quality gate: score %d is below the publish threshold %d",
			result.OverallScore, p.scorer.Thresholds.PublishThreshold))
	}

	if len(data.SourceURLs) > 0 {
		used, err := p.sources.UsedURLs(ctx, data.SourceURLs)
		if err != nil {
			return nil, p.fail(run, KindPersistence, err)
		}
		var dup []string
		for _, u := range data.SourceURLs {
			if used[u] {
				dup = append(dup, u)
			}
		}
		if len(dup) > 0 {
			return nil, p.fail(run, KindValidation, fmt.Errorf("sources already used within the dedup window: %s", strings.Join(dup, ", ")))
		}
	}

	article := &model.Article{
		Slug:             slug,
		Title:            strings.TrimSpace(data.Title),
		Subtitle:         data.Subtitle,
		Excerpt:          data.Excerpt,
		Content:          data.Content,
		Category:         data.Category,
		Tags:             data.Tags,
		RegionTags:       data.RegionTags,
		Status:           status,
		AuthorID:         userID,
		AuthorName:       orDefault(data.AuthorName, defaultAuthorName),
		AuthorRole:       orDefault(data.AuthorRole, defaultAuthorRole),
		FeaturedImageURL: data.FeaturedImageURL,
		SourceURLs:       data.SourceURLs,
		DataVerifiedAt:   data.DataVerifiedAt,
	}
	// 提交阶段不调用模型，按零 token 计费
	if err := p.persist(ctx, run, userID, article, result, eeat, nil); err != nil {
		return nil, err
	}

	return &PublishedArticle{
		ID:        article.ID,
		Title:     article.Title,
		Slug:      article.Slug,
		Category:  article.Category,
		WordCount: article.WordCount,
	}, nil
}

func (p *Publisher) score(body string, sourceURLs []string, verifiedAt string) (quality.Result, quality.EEATSignals) {
	eeat := quality.CheckEEAT(quality.EEATInput{
		Body:           body,
		SourceURLs:     sourceURLs,
		DataVerifiedAt: verifiedAt,
	})
	return p.scorer.Score(body, sourceURLs, eeat), eeat
}

// store 一次持久化使用的仓储集合
type store struct {
	articles repository.ArticleRepository
	sources  repository.SourceRepository
	usage    service.UsageService
}

// inTx 在事务内执行写入，未配置 DB 时直接使用注入的仓储
func (p *Publisher) inTx(ctx context.Context, fn func(st store) error) error {
	if p.db == nil {
		return fn(store{articles: p.articles, sources: p.sourceDB, usage: p.usage})
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st := store{
			articles: repository.NewArticleRepository(tx),
			sources:  repository.NewSourceRepository(tx),
		}
		if p.usage != nil {
			st.usage = p.usage.WithDB(tx)
		}
		return fn(st)
	})
}

// persist 写入文章、来源与计费记录，并发布文章事件
// 三类记录要么全部提交，要么全部回滚
func (p *Publisher) persist(ctx context.Context, run *statemachine.Run, userID string, article *model.Article,
	result quality.Result, eeat quality.EEATSignals, usage *schema.TokenUsage) error {
	score := result.OverallScore
	article.QualityScore = &score
	article.QualitySnapshot = datatypes.JSON(utils.ToJSON(result))
	article.EEATSnapshot = datatypes.JSON(utils.ToJSON(eeat))
	service.ApplyPublishState(article, p.now())

	err := p.inTx(ctx, func(st store) error {
		if err := st.articles.Create(ctx, article); err != nil {
			return err
		}
		if len(article.SourceURLs) > 0 && st.sources != nil {
			sources := make([]model.ArticleSource, 0, len(article.SourceURLs))
			for _, u := range article.SourceURLs {
				sources = append(sources, model.ArticleSource{ArticleID: article.ID, URL: u})
			}
			if err := st.sources.CreateBatch(ctx, sources); err != nil {
				return fmt.Errorf("failed to save article sources: %w", err)
			}
		}
		if st.usage != nil {
			_, err := st.usage.RecordCharge(ctx, service.Charge{
				UserID:    userID,
				Feature:   run.Workflow,
				ArticleID: article.ID,
				RunID:     run.ID,
				Usage:     usage,
			})
			if err != nil {
				return fmt.Errorf("failed to record usage: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return p.fail(run, KindPersistence, err)
	}
	klog.V(6).Infof("文章已保存: workflow=%s, runID=%s, id=%s, slug=%s, status=%s, score=%d",
		run.Workflow, run.ID, article.ID, article.Slug, article.Status, score)
	if p.usage != nil {
		p.metrics.ObserveCharge(run.Workflow)
	}

	p.publishEvents(ctx, run, article)

	if err := p.advance(run, statemachine.StageDone); err != nil {
		return err
	}
	p.metrics.ObserveRun(run.Workflow, article.Status)
	return nil
}

func (p *Publisher) publishEvents(ctx context.Context, run *statemachine.Run, article *model.Article) {
	if p.bus == nil {
		return
	}
	event := eventbus.ArticleEvent{
		Type:      eventbus.ArticleEventSaved,
		ArticleID: article.ID,
		Slug:      article.Slug,
		Category:  article.Category,
		Workflow:  run.Workflow,
		RunID:     run.ID,
	}
	if article.QualityScore != nil {
		event.QualityScore = *article.QualityScore
	}
	if err := p.bus.Publish(ctx, event); err != nil {
		klog.Warningf("文章事件处理失败: type=%s, runID=%s, error=%v", event.Type, run.ID, err)
	}
	if article.IsPublished() {
		event.Type = eventbus.ArticleEventPublished
		if err := p.bus.Publish(ctx, event); err != nil {
			klog.Warningf("文章事件处理失败: type=%s, runID=%s, error=%v", event.Type, run.ID, err)
		}
	}
}

// advance 阶段迁移失败只会是编排逻辑错误
func (p *Publisher) advance(run *statemachine.Run, to statemachine.Stage) error {
	if err := run.Advance(to); err != nil {
		stage := run.Fail(err)
		p.metrics.ObserveRun(run.Workflow, "failed")
		return &PipelineError{Kind: KindPersistence, Stage: stage, Err: err}
	}
	return nil
}

func (p *Publisher) fail(run *statemachine.Run, kind Kind, err error) error {
	stage := run.Fail(err)
	p.metrics.ObserveRun(run.Workflow, "failed")
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return &PipelineError{Kind: kind, Stage: stage, Err: err}
}

// resolveSlug 草稿 slug 合法时直接使用，否则由标题生成
func resolveSlug(candidate, title string) string {
	candidate = strings.TrimSpace(candidate)
	if utils.IsValidSlug(candidate) {
		return candidate
	}
	if s := utils.Slugify(candidate); utils.IsValidSlug(s) {
		return s
	}
	if s := utils.Slugify(title); utils.IsValidSlug(s) {
		return s
	}
	return ""
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
