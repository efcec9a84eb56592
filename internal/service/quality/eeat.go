package quality

import (
	"regexp"
	"strings"
)

const minCitedSources = 2

var (
	attributionPattern = regexp.MustCompile(`(?m)^(?:By [A-Z]|(?i:analyst:|about the author|> author:))`)
	methodologyPattern = regexp.MustCompile(`(?im)^(#{1,6}\s.*methodology|> METHODOLOGY:)`)
	disclaimerPhrases  = []string{
		"forward-looking statement",
		"not financial advice",
		"past performance",
		"> risk:",
		"disclaimer",
	}
)

// EEATInput 检查所需的草稿信息
type EEATInput struct {
	Body           string
	SourceURLs     []string
	DataVerifiedAt string
}

// EEATSignals EEAT 信号集
type EEATSignals struct {
	SourcesCited             int    `json:"sourcesCited"`
	DataVerificationDate     string `json:"dataVerificationDate"`
	AuthorExpertise          bool   `json:"authorExpertise"`
	ForwardLookingDisclaimer bool   `json:"forwardLookingDisclaimer"`
	MethodologySection       bool   `json:"methodologySection"`
}

// Compliant 所有检查项均通过
func (s EEATSignals) Compliant() bool {
	return s.SourcesCited >= minCitedSources &&
		strings.TrimSpace(s.DataVerificationDate) != "" &&
		s.AuthorExpertise &&
		s.ForwardLookingDisclaimer &&
		s.MethodologySection
}

// CheckEEAT 文本启发式检查，不做语义理解
func CheckEEAT(in EEATInput) EEATSignals {
	lower := strings.ToLower(in.Body)
	signals := EEATSignals{
		SourcesCited:         countSources(in.SourceURLs),
		DataVerificationDate: strings.TrimSpace(in.DataVerifiedAt),
		AuthorExpertise:      attributionPattern.MatchString(in.Body),
		MethodologySection:   methodologyPattern.MatchString(in.Body),
	}
	for _, phrase := range disclaimerPhrases {
		if strings.Contains(lower, phrase) {
			signals.ForwardLookingDisclaimer = true
			break
		}
	}
	return signals
}
