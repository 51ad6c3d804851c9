package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/tools/scraper"
)

// WebScraperAgentName 是网页抓取代理的默认名。
const WebScraperAgentName = "web_scraper_agent"

const webScraperDescription = `# Functionality:
This agent scrapes the **entire content** from web pages provided in a list of URLs. Use this tool when you need comprehensive information or global context from web pages.

## Inputs:
- **urls**: A list of URLs to scrape.

## Outputs:
- A JSON-formatted string containing the scraped content from each webpage, mapped to its corresponding URL.

## When to Use:
- When you need to retrieve the full text content of web pages for analysis.
- After obtaining URLs and requiring detailed content from those pages.

## Important Notes:
- This tool retrieves **all available text content** from the specified URLs.
- Supported document types are HTML and PDF.

## Example Workflow:
1. **Obtain URLs**: Get search results and extract URLs.
2. **Scrape Content**: Use web scraping with the list of URLs to scrape full content.
3. **Utilize Data**: Analyze or process the scraped content as needed.

# Remember
You should provide the inputs as suggested.

--------------------------------`

func webScraperSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"urls": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":        "string",
					"description": "A valid URL to scrape.",
				},
				"description": "A list of URLs to scrape.",
			},
		},
		"required":             []string{"urls"},
		"additionalProperties": false,
	}
}

// NewWebScraper 创建网页抓取代理。
// 结果是 url → 抓取结果的 JSON 映射；单个 URL 失败记为 {"error": …}。
func NewWebScraper(cfg Config, provider llm.Provider, s *scraper.Scraper, logger *zap.Logger) *ToolCalling {
	if cfg.Name == "" {
		cfg.Name = WebScraperAgentName
	}
	if cfg.Description == "" {
		cfg.Description = webScraperDescription
	}

	spec := ToolSpec{
		Schema: webScraperSchema,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			urls := stringSliceArg(args, "urls")
			if len(urls) == 0 {
				return "", fmt.Errorf("URLs are missing from the tool response")
			}

			type entry struct {
				url    string
				result any
			}
			entries := make([]entry, len(urls))

			g := new(errgroup.Group)
			g.SetLimit(searchConcurrency)
			for i, url := range urls {
				g.Go(func() error {
					result, err := s.Scrape(ctx, url)
					if err != nil {
						entries[i] = entry{url: url, result: map[string]string{"error": err.Error()}}
						return nil
					}
					entries[i] = entry{url: url, result: result}
					return nil
				})
			}
			_ = g.Wait()

			combined := make(map[string]any, len(entries))
			for _, e := range entries {
				combined[e.url] = e.result
			}

			encoded, err := json.Marshal(combined)
			if err != nil {
				return "", fmt.Errorf("encode scrape results: %w", err)
			}
			return string(encoded), nil
		},
	}
	return NewToolCalling(cfg, provider, spec, logger)
}
