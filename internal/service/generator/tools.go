package generator

import (
	"github.com/gitroshpdx/finance-clarity-sub000/internal/model"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/pkg/llm"
)

const (
	ToolCreateMarketReport     = "create_market_report"
	ToolExtractArticleMetadata = "extract_article_metadata"

	summaryPoints = 3
)

// draftRequiredFields 草稿必填字段，与工具定义保持一致
var draftRequiredFields = []string{
	"title",
	"subtitle",
	"slug",
	"category",
	"summary",
	"content",
	"seo_keywords",
	"read_time_minutes",
}

var metadataRequiredFields = []string{"title", "excerpt", "category", "tags"}

func stringArray(description string, minItems, maxItems int) llm.Property {
	return llm.Property{
		Type:        "array",
		Description: description,
		Items:       &llm.Property{Type: "string"},
		MinItems:    minItems,
		MaxItems:    maxItems,
	}
}

// MarketReportTool 结构化生成市场报告的工具定义
func MarketReportTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name:        ToolCreateMarketReport,
			Description: "Create a structured financial market report from the supplied news material.",
			Parameters: llm.ParameterSchema{
				Type: "object",
				Properties: map[string]llm.Property{
					"title": {
						Type:        "string",
						Description: "Headline, under 90 characters, no clickbait",
					},
					"subtitle": {
						Type:        "string",
						Description: "One sentence deck expanding on the headline",
					},
					"slug": {
						Type:        "string",
						Description: "URL slug: lowercase words joined by hyphens",
					},
					"category": {
						Type:        "string",
						Description: "Site category",
						Enum:        model.CategorySlugs(),
					},
					"region_tags": stringArray("Regions covered, e.g. US, EU, Asia", 0, 5),
					"summary":     stringArray("Exactly three bullet points summarizing the report", summaryPoints, summaryPoints),
					"content": {
						Type:        "string",
						Description: "Full markdown body using ## headings, > DATA: and > KEY: callouts, a methodology section and a ## Key Takeaways section",
					},
					"sources":      stringArray("URLs of the sources the report relies on", 0, 10),
					"seo_keywords": stringArray("Search keywords", 3, 10),
					"read_time_minutes": {
						Type:        "integer",
						Description: "Estimated reading time in minutes",
					},
				},
				Required: append(append([]string(nil), draftRequiredFields...), "region_tags", "sources"),
			},
		},
	}
}

// ArticleMetadataTool 从已有文章中抽取元数据的工具定义
func ArticleMetadataTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name:        ToolExtractArticleMetadata,
			Description: "Extract publishing metadata from an article.",
			Parameters: llm.ParameterSchema{
				Type: "object",
				Properties: map[string]llm.Property{
					"title": {
						Type:        "string",
						Description: "The article headline",
					},
					"excerpt": {
						Type:        "string",
						Description: "A one or two sentence summary, at most 200 characters",
					},
					"category": {
						Type:        "string",
						Description: "Best matching site category",
						Enum:        model.CategorySlugs(),
					},
					"tags": stringArray("Topic tags", 1, 8),
				},
				Required: metadataRequiredFields,
			},
		},
	}
}
