package generator

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/gitroshpdx/finance-clarity-sub000/internal/model"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/llm"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/utils"
)

// DraftRequest 自动发布的生成参数
type DraftRequest struct {
	RawText       string
	Category      string
	RegionTags    []string
	MarketContext map[string]string
	PublishDate   string
}

// Draft 模型生成的草稿，未持久化
type Draft struct {
	Title           string   `json:"title"`
	Subtitle        string   `json:"subtitle"`
	Slug            string   `json:"slug"`
	Category        string   `json:"category"`
	RegionTags      []string `json:"region_tags"`
	Summary         []string `json:"summary"`
	Content         string   `json:"content"`
	Sources         []string `json:"sources"`
	SEOKeywords     []string `json:"seo_keywords"`
	ReadTimeMinutes int      `json:"read_time_minutes"`
}

// ArticleMetadata parse-article 的抽取结果
type ArticleMetadata struct {
	Title    string   `json:"title"`
	Excerpt  string   `json:"excerpt"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// decodeArguments 解析工具调用参数，并检查必填字段存在且非空
func decodeArguments(call *llm.ToolCall, required []string, out any) error {
	args := strings.TrimSpace(call.Function.Arguments)
	if args == "" {
		return llm.Malformed("%s returned empty arguments", call.Function.Name)
	}
	args = utils.ExtractJSON(args)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(args), &fields); err != nil {
		return llm.Malformed("%s arguments are not a JSON object: %v", call.Function.Name, err)
	}
	for _, name := range required {
		raw, ok := fields[name]
		if !ok || isEmptyJSON(raw) {
			return llm.Malformed("missing required field %q", name)
		}
	}

	if err := json.Unmarshal([]byte(args), out); err != nil {
		return llm.Malformed("%s arguments do not match schema: %v", call.Function.Name, err)
	}
	return nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", `""`, "[]", "{}":
		return true
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// validate 字段内容的附加校验
func (d *Draft) validate() error {
	if len(d.Summary) != summaryPoints {
		return llm.Malformed("summary must have exactly %d points, got %d", summaryPoints, len(d.Summary))
	}
	for i, point := range d.Summary {
		if strings.TrimSpace(point) == "" {
			return llm.Malformed("summary point %d is empty", i+1)
		}
	}
	if !model.IsValidCategory(d.Category) {
		return llm.Malformed("unknown category %q", d.Category)
	}
	if d.ReadTimeMinutes < 0 {
		return llm.Malformed("read_time_minutes must not be negative")
	}
	return nil
}

func (m *ArticleMetadata) validate() error {
	if !model.IsValidCategory(m.Category) {
		return llm.Malformed("unknown category %q", m.Category)
	}
	tags := m.Tags[:0]
	for _, tag := range m.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return llm.Malformed("missing required field %q", "tags")
	}
	m.Tags = tags
	return nil
}
