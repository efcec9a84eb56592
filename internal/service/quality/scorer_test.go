package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func compliantSignals() EEATSignals {
	return EEATSignals{
		SourcesCited:             3,
		DataVerificationDate:     "2026-10-01",
		AuthorExpertise:          true,
		ForwardLookingDisclaimer: true,
		MethodologySection:       true,
	}
}

func scenarioBBody() string {
	lines := []string{
		"## Market Overview",
		"> DATA: S&P 500 closed at 5,200",
		"## Sector Moves",
		"> DATA: Energy gained 2.1%",
		"> KEY: Rate cut expectations drive equities",
		"## Outlook",
		"> DATA: 10-year yield fell to 4.1%",
		"> KEY: Defensive sectors lagged",
		"## Key Takeaways",
	}
	header := strings.Join(lines, "\n")
	return header + "\n" + words(1600-len(strings.Fields(header)))
}

func TestKeyInsightBoundary(t *testing.T) {
	s := NewScorer(DefaultThresholds())

	one := s.Score("> KEY: only one\n"+words(10), nil, EEATSignals{})
	assert.Equal(t, 1, one.KeyInsightCount.Actual)
	assert.False(t, one.KeyInsightCount.Passed)
	assert.Zero(t, one.KeyInsightCount.Points)

	two := s.Score("> KEY: one\n> KEY: two", nil, EEATSignals{})
	assert.True(t, two.KeyInsightCount.Passed)
	assert.Equal(t, KeyInsightPoints, two.KeyInsightCount.Points)

	// 行中间出现的标记不计数
	inline := s.Score("text > KEY: not at line start\n> KEY: one", nil, EEATSignals{})
	assert.Equal(t, 1, inline.KeyInsightCount.Actual)
}

func TestMarkersInCodeBlocksStillCount(t *testing.T) {
	s := NewScorer(DefaultThresholds())
	body := "```\n> DATA: a\n> DATA: b\n> DATA: c\n```"
	r := s.Score(body, nil, EEATSignals{})
	assert.Equal(t, 3, r.DataPointCount.Actual)
	assert.True(t, r.DataPointCount.Passed)
}

func TestEmptyBody(t *testing.T) {
	r := NewScorer(DefaultThresholds()).Score("", nil, EEATSignals{})
	assert.Zero(t, r.WordCount.Actual)
	assert.Zero(t, r.HeadingCount.Actual)
	assert.Zero(t, r.DataPointCount.Actual)
	assert.Zero(t, r.KeyInsightCount.Actual)
	assert.False(t, r.HasConclusion)
	assert.Zero(t, r.OverallScore)
	assert.False(t, r.Passed)
}

func TestOverallIsSumPlusBonus(t *testing.T) {
	s := NewScorer(DefaultThresholds())
	bodies := []string{"", "## A\n## B", scenarioBBody(), "> KEY: x\n> KEY: y\nConclusion"}
	for _, body := range bodies {
		for _, eeat := range []EEATSignals{{}, compliantSignals()} {
			r := s.Score(body, []string{"https://a", "https://b"}, eeat)
			assert.Equal(t, r.BasePoints()+r.EEATBonus, r.OverallScore)
			assert.GreaterOrEqual(t, r.OverallScore, 0)
			assert.LessOrEqual(t, r.OverallScore, MaxScore)
		}
	}
}

func TestPublishGateBoundary(t *testing.T) {
	s := NewScorer(DefaultThresholds())
	assert.False(t, s.CanPublish(69))
	assert.True(t, s.CanPublish(70))
	assert.True(t, s.CanPublish(100))
}

func TestScorerIsPure(t *testing.T) {
	s := NewScorer(DefaultThresholds())
	body := scenarioBBody()
	sources := []string{"https://a", "https://b", "https://c"}
	assert.Equal(t, s.Score(body, sources, compliantSignals()), s.Score(body, sources, compliantSignals()))

	in := EEATInput{Body: body, SourceURLs: sources, DataVerifiedAt: "2026-10-01"}
	assert.Equal(t, CheckEEAT(in), CheckEEAT(in))
}

func TestScenarioA(t *testing.T) {
	s := NewScorer(DefaultThresholds())
	r := s.Score(words(1200), nil, CheckEEAT(EEATInput{Body: words(1200)}))

	assert.False(t, r.WordCount.Passed)
	assert.False(t, r.DataPointCount.Passed)
	assert.False(t, r.KeyInsightCount.Passed)
	assert.False(t, r.SourceCount.Passed)
	assert.LessOrEqual(t, r.OverallScore, 20)
	assert.False(t, r.Passed)
}

func TestScenarioB(t *testing.T) {
	s := NewScorer(DefaultThresholds())
	body := scenarioBBody()
	sources := []string{"https://a", "https://b", "https://c"}

	r := s.Score(body, sources, EEATSignals{})
	assert.Equal(t, 1600, r.WordCount.Actual)
	assert.Equal(t, 4, r.HeadingCount.Actual)
	assert.Equal(t, 3, r.DataPointCount.Actual)
	assert.Equal(t, 2, r.KeyInsightCount.Actual)
	assert.Equal(t, 3, r.SourceCount.Actual)
	assert.True(t, r.HasConclusion)
	assert.Equal(t, 90, r.OverallScore)

	full := s.Score(body, sources, compliantSignals())
	assert.Equal(t, 100, full.OverallScore)
	assert.Equal(t, EEATBonusPoints, full.EEATBonus)
}

func TestThresholdsFromConfigKeepsDefaults(t *testing.T) {
	th := ThresholdsFromConfig(configWithMinWords(800))
	assert.Equal(t, 800, th.MinWords)
	assert.Equal(t, 4, th.MinHeadings)
	assert.Equal(t, 70, th.PublishThreshold)
}
