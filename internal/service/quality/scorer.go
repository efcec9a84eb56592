package quality

import (
	"regexp"
	"strings"

	"github.com/gitroshpdx/finance-clarity-sub000/config"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/model"
)

// 各项分值
const (
	WordCountPoints  = 20
	HeadingPoints    = 15
	DataPointPoints  = 15
	KeyInsightPoints = 15
	ConclusionPoints = 10
	SourcePoints     = 15
	EEATBonusPoints  = 10

	MaxScore = 100
)

var (
	headingPattern    = regexp.MustCompile(`(?m)^## `)
	dataPattern       = regexp.MustCompile(`(?m)^> DATA:`)
	keyPattern        = regexp.MustCompile(`(?m)^> KEY:`)
	conclusionPattern = regexp.MustCompile(`(?i)key takeaways|conclusion`)
)

// Thresholds 各项最低要求
type Thresholds struct {
	MinWords         int
	MinHeadings      int
	MinDataPoints    int
	MinKeyInsights   int
	MinSources       int
	PublishThreshold int
}

// DefaultThresholds 默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinWords:         1500,
		MinHeadings:      4,
		MinDataPoints:    3,
		MinKeyInsights:   2,
		MinSources:       2,
		PublishThreshold: 70,
	}
}

// ThresholdsFromConfig 读取配置，未配置的项使用默认值
func ThresholdsFromConfig(cfg config.QualityConfig) Thresholds {
	t := DefaultThresholds()
	if cfg.MinWords > 0 {
		t.MinWords = cfg.MinWords
	}
	if cfg.MinHeadings > 0 {
		t.MinHeadings = cfg.MinHeadings
	}
	if cfg.MinDataPoints > 0 {
		t.MinDataPoints = cfg.MinDataPoints
	}
	if cfg.MinKeyInsights > 0 {
		t.MinKeyInsights = cfg.MinKeyInsights
	}
	if cfg.MinSources > 0 {
		t.MinSources = cfg.MinSources
	}
	if cfg.PublishThreshold > 0 {
		t.PublishThreshold = cfg.PublishThreshold
	}
	return t
}

// Criterion 单项检查结果，未达标不给部分分
type Criterion struct {
	Minimum int  `json:"min"`
	Actual  int  `json:"actual"`
	Passed  bool `json:"passed"`
	Points  int  `json:"points"`
}

func newCriterion(minimum, actual, points int) Criterion {
	c := Criterion{Minimum: minimum, Actual: actual, Passed: actual >= minimum}
	if c.Passed {
		c.Points = points
	}
	return c
}

// Result 质量检查结果
type Result struct {
	WordCount       Criterion `json:"wordCount"`
	HeadingCount    Criterion `json:"headingCount"`
	DataPointCount  Criterion `json:"dataPointCount"`
	KeyInsightCount Criterion `json:"keyInsightCount"`
	SourceCount     Criterion `json:"sourceCount"`
	HasConclusion   bool      `json:"hasConclusion"`
	EEATBonus       int       `json:"eeatBonus"`
	OverallScore    int       `json:"overallScore"`
	Passed          bool      `json:"passed"`
}

// BasePoints 六项基础分之和
func (r Result) BasePoints() int {
	total := r.WordCount.Points + r.HeadingCount.Points + r.DataPointCount.Points +
		r.KeyInsightCount.Points + r.SourceCount.Points
	if r.HasConclusion {
		total += ConclusionPoints
	}
	return total
}

// Scorer 基于行模式的规则评分器
type Scorer struct {
	Thresholds Thresholds
}

func NewScorer(t Thresholds) *Scorer {
	return &Scorer{Thresholds: t}
}

// Score 对正文评分，结果只取决于输入
func (s *Scorer) Score(body string, sourceURLs []string, eeat EEATSignals) Result {
	t := s.Thresholds
	r := Result{
		WordCount:       newCriterion(t.MinWords, model.CountWords(body), WordCountPoints),
		HeadingCount:    newCriterion(t.MinHeadings, len(headingPattern.FindAllStringIndex(body, -1)), HeadingPoints),
		DataPointCount:  newCriterion(t.MinDataPoints, len(dataPattern.FindAllStringIndex(body, -1)), DataPointPoints),
		KeyInsightCount: newCriterion(t.MinKeyInsights, len(keyPattern.FindAllStringIndex(body, -1)), KeyInsightPoints),
		SourceCount:     newCriterion(t.MinSources, countSources(sourceURLs), SourcePoints),
		HasConclusion:   conclusionPattern.MatchString(body),
	}
	if eeat.Compliant() {
		r.EEATBonus = EEATBonusPoints
	}

	score := r.BasePoints() + r.EEATBonus
	if score < 0 {
		score = 0
	}
	if score > MaxScore {
		score = MaxScore
	}
	r.OverallScore = score
	r.Passed = s.CanPublish(score)
	return r
}

// CanPublish 分数是否达到发布门槛
func (s *Scorer) CanPublish(score int) bool {
	return score >= s.Thresholds.PublishThreshold
}

func countSources(urls []string) int {
	n := 0
	for _, u := range urls {
		if strings.TrimSpace(u) != "" {
			n++
		}
	}
	return n
}
