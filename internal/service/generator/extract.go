package generator

import (
	"strings"
	"unicode/utf8"

	"github.com/gitroshpdx/finance-clarity-sub000/internal/utils"
)

const (
	excerptLimit   = 200
	shortLineLimit = 120
)

// ExtractTitleAndExcerpt 从流式生成的全文中猜测标题与摘要
// 标题取第一行标题样式的行，没有时取第一行短文本；摘要取第一个非标题段落
func ExtractTitleAndExcerpt(doc string) (title, excerpt string) {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	if strings.HasPrefix(strings.TrimSpace(doc), "```") {
		doc = utils.ExtractMarkdown(doc)
	}
	lines := strings.Split(doc, "\n")

	titleLine := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			title = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			titleLine = i
			break
		}
	}
	if titleLine < 0 {
		for i, line := range lines {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && utf8.RuneCountInString(trimmed) <= shortLineLimit {
				title = trimmed
				titleLine = i
				break
			}
		}
	}

	var paragraph []string
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if i == titleLine || strings.HasPrefix(trimmed, "#") {
			if len(paragraph) > 0 {
				break
			}
			continue
		}
		if trimmed == "" {
			if len(paragraph) > 0 {
				break
			}
			continue
		}
		// 段落开头的引用标记行不作为摘要
		if len(paragraph) == 0 && strings.HasPrefix(trimmed, ">") {
			continue
		}
		paragraph = append(paragraph, trimmed)
	}

	excerpt = truncateRunes(strings.Join(paragraph, " "), excerptLimit)
	return title, excerpt
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
