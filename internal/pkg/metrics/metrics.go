package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "finance_clarity"

// Metrics 流水线相关指标
type Metrics struct {
	PipelineRuns      *prometheus.CounterVec
	QualityScore      *prometheus.HistogramVec
	ArticlesPublished prometheus.Counter
	ArticlesSaved     *prometheus.CounterVec
	UsageCharges      *prometheus.CounterVec
}

// New 创建并注册指标，reg 为空时只创建不注册
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Number of content pipeline runs by workflow and outcome.",
		}, []string{"workflow", "outcome"}),
		QualityScore: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_quality_score",
			Help:      "Overall quality score of generated drafts.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}, []string{"workflow"}),
		ArticlesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_published_total",
			Help:      "Number of articles persisted with status published.",
		}),
		ArticlesSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_saved_total",
			Help:      "Number of article writes by workflow.",
		}, []string{"workflow"}),
		UsageCharges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_charges_total",
			Help:      "Number of usage charges recorded by feature.",
		}, []string{"feature"}),
	}
	if reg != nil {
		reg.MustRegister(m.PipelineRuns, m.QualityScore, m.ArticlesPublished, m.ArticlesSaved, m.UsageCharges)
	}
	return m
}

// ObserveRun 记录一次流水线结果
func (m *Metrics) ObserveRun(workflow, outcome string) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(workflow, outcome).Inc()
}

// ObserveScore 记录质量分
func (m *Metrics) ObserveScore(workflow string, score int) {
	if m == nil {
		return
	}
	m.QualityScore.WithLabelValues(workflow).Observe(float64(score))
}

// ObserveCharge 记录计费
func (m *Metrics) ObserveCharge(feature string) {
	if m == nil {
		return
	}
	m.UsageCharges.WithLabelValues(feature).Inc()
}
