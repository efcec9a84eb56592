package subscriber

import (
	"context"
	"testing"

	"github.com/gitroshpdx/finance-clarity-sub000/internal/eventbus"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestArticleEventSubscriberRegisterAndHandle(t *testing.T) {
	bus := eventbus.NewArticleEventBus()
	m := metrics.New(prometheus.NewRegistry())
	NewArticleEventSubscriber(m).Register(bus)

	event := eventbus.ArticleEvent{ArticleID: "a1", Slug: "s", Workflow: "auto-publish", QualityScore: 90}
	event.Type = eventbus.ArticleEventSaved
	if err := bus.Publish(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	event.Type = eventbus.ArticleEventPublished
	if err := bus.Publish(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bus.Publish(context.Background(), eventbus.ArticleEvent{Type: eventbus.ArticleEventDeleted, ArticleID: "a1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := testutil.ToFloat64(m.ArticlesSaved.WithLabelValues("auto-publish")); got != 1 {
		t.Fatalf("expected 1 saved, got %v", got)
	}
	if got := testutil.ToFloat64(m.ArticlesPublished); got != 1 {
		t.Fatalf("expected 1 published, got %v", got)
	}
}

func TestArticleEventSubscriberRejectsEmptyID(t *testing.T) {
	bus := eventbus.NewArticleEventBus()
	NewArticleEventSubscriber(nil).Register(bus)

	err := bus.Publish(context.Background(), eventbus.ArticleEvent{Type: eventbus.ArticleEventSaved})
	if err == nil {
		t.Fatalf("expected error for empty article id")
	}
}

func TestRegisterNilBus(t *testing.T) {
	NewArticleEventSubscriber(nil).Register(nil)
}
