package generator

import (
	"fmt"
	"sort"
	"strings"
)

const draftSystemPrompt = `You are a senior financial journalist writing for an independent market news site.
Write factual, balanced reports grounded only in the material you are given. Never invent figures.

Formatting rules for the content field:
- Use at least four "## " section headings.
- Put every hard figure on its own line starting with "> DATA: ".
- Put the main insights on their own lines starting with "> KEY: ".
- Open with a line "> AUTHOR: " describing the analyst desk and its expertise.
- Include a "## Methodology" section explaining how the data was gathered.
- Include a "> RISK: " line with a forward-looking statement disclaimer. This is not financial advice.
- Finish with a "## Key Takeaways" section.
- Aim for at least 1500 words.

Return the result only through the create_market_report function.`

const metadataSystemPrompt = `You are an editor preparing an article for publication.
Read the article and return its title, a short excerpt, the best matching category and topic tags
through the extract_article_metadata function. Do not rewrite the article.`

const reportSystemPrompt = `You are a senior financial journalist. Write a long-form market report in markdown.
Start with a "# " title line, then an introductory paragraph, then "## " sections.
Use "> DATA: " lines for figures and "> KEY: " lines for key insights,
and end with a "## Key Takeaways" section followed by a short risk disclaimer.
Output only the article.`

// buildDraftPrompt 自动发布的用户提示词
func buildDraftPrompt(req DraftRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Publish date: %s\n", req.PublishDate)
	if req.Category != "" {
		fmt.Fprintf(&sb, "Category: %s\n", req.Category)
	}
	if len(req.RegionTags) > 0 {
		fmt.Fprintf(&sb, "Regions: %s\n", strings.Join(req.RegionTags, ", "))
	}
	if len(req.MarketContext) > 0 {
		sb.WriteString("\nMarket context:\n")
		keys := make([]string, 0, len(req.MarketContext))
		for k := range req.MarketContext {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "- %s: %s\n", k, req.MarketContext[k])
		}
	}
	sb.WriteString("\nRaw news material:\n")
	sb.WriteString(req.RawText)
	return sb.String()
}

// buildReportPrompt 流式报告的用户提示词
func buildReportPrompt(req ReportRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s\n", req.Topic)
	if req.Category != "" {
		fmt.Fprintf(&sb, "Category: %s\n", req.Category)
	}
	wordCount := req.WordCount
	if wordCount <= 0 {
		wordCount = 1500
	}
	fmt.Fprintf(&sb, "Target length: about %d words\n", wordCount)
	if len(req.Sources) > 0 {
		sb.WriteString("\nSources:\n")
		for _, s := range req.Sources {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
	}
	if strings.TrimSpace(req.AdditionalInstructions) != "" {
		sb.WriteString("\nAdditional instructions:\n")
		sb.WriteString(req.AdditionalInstructions)
		sb.WriteString("\n")
	}
	return sb.String()
}
