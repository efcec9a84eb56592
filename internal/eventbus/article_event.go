package eventbus

type ArticleEventType string

const (
	ArticleEventSaved     ArticleEventType = "ArticleSaved"
	ArticleEventPublished ArticleEventType = "ArticlePublished"
	ArticleEventDeleted   ArticleEventType = "ArticleDeleted"
)

type ArticleEvent struct {
	Type         ArticleEventType
	ArticleID    string
	Slug         string
	Category     string
	Workflow     string // auto-publish / one-click-publish / admin
	RunID        string
	QualityScore int
}

func (e ArticleEvent) EventType() ArticleEventType { return e.Type }

type ArticleEventHandler = Handler[ArticleEvent]
type ArticleEventBus = Bus[ArticleEventType, ArticleEvent]

func NewArticleEventBus() *ArticleEventBus {
	return NewBus[ArticleEventType, ArticleEvent]()
}
