package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/tools/serper"
)

// SerperSearchAgentName 是网页检索代理的默认名。
const SerperSearchAgentName = "serper_agent"

const (
	searchConcurrency     = 5
	defaultSearchLocation = "us"
)

const serperSearchDescription = `# Functionality:
This agent performs Google web searches based on a list of queries you provide. It returns a formatted list of organic search results, including the query, title, link, and sitelinks for each result.

## Inputs:
- **queries**: A list of search query strings.
- **location**: Geographic location code for the search (e.g., 'us', 'gb', 'nl', 'ca'). Defaults to 'us'.

## Outputs:
- A formatted string representing the organic search engine results page (SERP), including:
    - Query
    - Title
    - Link
    - Sitelinks

## When to Use:
- When you need to retrieve search engine results for specific queries.
- When you require URLs from search results for further investigation.

## Important Notes:
- This tool **only** provides search result summaries; it does **not** access or retrieve content from the linked web pages.
- To obtain detailed content or specific information from the web pages listed in the search results, you should use the **web_scraper_agent** with the URLs obtained from this tool.

## Example Workflow:
1. **Search**: Use this agent with queries like ` + "`[\"latest advancements in AI\"]`" + `.
2. **Retrieve URLs**: Extract the list of URLs from the search results.
3. **Deep Dive**: Use web scraping with the extracted URLs to get the full content of the pages.

# Remember
You should provide the inputs as suggested.

--------------------------------`

func serperSearchSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"queries": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":        "string",
					"description": "A search query string.",
				},
				"description": "A list of search query strings.",
			},
			"location": map[string]any{
				"type": "string",
				"description": "The geographic location for the search results. " +
					"Available locations: 'us' (United States), 'gb' (United Kingdom), " +
					"'nl' (The Netherlands), 'ca' (Canada).",
			},
		},
		"required":             []string{"queries", "location"},
		"additionalProperties": false,
	}
}

// NewSerperSearch 创建网页检索代理。
func NewSerperSearch(cfg Config, provider llm.Provider, client *serper.Client, logger *zap.Logger) *ToolCalling {
	if cfg.Name == "" {
		cfg.Name = SerperSearchAgentName
	}
	if cfg.Description == "" {
		cfg.Description = serperSearchDescription
	}

	spec := ToolSpec{
		Schema: serperSearchSchema,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			queries := stringSliceArg(args, "queries")
			if len(queries) == 0 {
				return "", fmt.Errorf("search queries missing from the tool response")
			}
			location := stringArg(args, "location")
			if location == "" {
				location = defaultSearchLocation
			}

			return fanOutQueries(ctx, queries, func(ctx context.Context, query string) (string, error) {
				results, err := client.Search(ctx, query, location)
				if err != nil {
					return "", err
				}
				return serper.FormatResults(results), nil
			}), nil
		},
	}
	return NewToolCalling(cfg, provider, spec, logger)
}

// fanOutQueries 以受限并发执行全部查询并按输入顺序拼接结果。
// 单条查询失败转为错误占位文本，不会中断整批。
func fanOutQueries(ctx context.Context, queries []string, run func(ctx context.Context, query string) (string, error)) string {
	results := make([]string, len(queries))

	g := new(errgroup.Group)
	g.SetLimit(searchConcurrency)
	for i, query := range queries {
		g.Go(func() error {
			out, err := run(ctx, query)
			if err != nil {
				results[i] = fmt.Sprintf("Error for query '%s': %v", query, err)
				return nil
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait()

	return strings.Join(results, "\n")
}
