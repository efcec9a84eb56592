package subscriber

import (
	"context"
	"fmt"

	"github.com/gitroshpdx/finance-clarity-sub000/internal/eventbus"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/metrics"
	"k8s.io/klog/v2"
)

// ArticleEventSubscriber 文章事件订阅者：记录指标与日志
type ArticleEventSubscriber struct {
	metrics *metrics.Metrics
}

func NewArticleEventSubscriber(m *metrics.Metrics) *ArticleEventSubscriber {
	return &ArticleEventSubscriber{metrics: m}
}

func (s *ArticleEventSubscriber) Register(bus *eventbus.ArticleEventBus) {
	if bus == nil {
		return
	}
	bus.Subscribe(eventbus.ArticleEventSaved, s.handleSaved)
	bus.Subscribe(eventbus.ArticleEventPublished, s.handlePublished)
	bus.Subscribe(eventbus.ArticleEventDeleted, s.handleDeleted)
}

func (s *ArticleEventSubscriber) handleSaved(ctx context.Context, event eventbus.ArticleEvent) error {
	if event.ArticleID == "" {
		return fmt.Errorf("article id is empty")
	}
	if s.metrics != nil {
		s.metrics.ArticlesSaved.WithLabelValues(event.Workflow).Inc()
	}
	klog.V(6).Infof("文章保存事件处理成功: workflow=%s, runID=%s, id=%s, slug=%s, score=%d",
		event.Workflow, event.RunID, event.ArticleID, event.Slug, event.QualityScore)
	return nil
}

// handlePublished 处理文章发布事件
func (s *ArticleEventSubscriber) handlePublished(ctx context.Context, event eventbus.ArticleEvent) error {
	if event.ArticleID == "" {
		return fmt.Errorf("article id is empty")
	}
	if s.metrics != nil {
		s.metrics.ArticlesPublished.Inc()
	}
	klog.Infof("文章已发布: workflow=%s, id=%s, slug=%s, category=%s, score=%d",
		event.Workflow, event.ArticleID, event.Slug, event.Category, event.QualityScore)
	return nil
}

func (s *ArticleEventSubscriber) handleDeleted(ctx context.Context, event eventbus.ArticleEvent) error {
	klog.V(6).Infof("文章删除事件处理成功: id=%s, slug=%s", event.ArticleID, event.Slug)
	return nil
}
