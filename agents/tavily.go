package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/tools/tavily"
)

// TavilyAgentName 是 Tavily 检索代理的默认名。
const TavilyAgentName = "tavily_agent"

const tavilyDescription = `# Functionality:
This agent performs search operations using the Tavily search tool. Tavily returns concise, content-rich snippets for a single query and works well for factual questions and recent events.

## Inputs:
- **query**: The search query string.

## Outputs:
- A JSON-formatted string with a results list; each result carries the query, title, url, and content snippet.

## When to Use:
- When a single focused query with content snippets is more useful than a page of links.
- As a complement to the Google search agent when its results are thin.

# Remember
You should provide the inputs as suggested.

--------------------------------`

func tavilySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query string.",
			},
		},
		"required":             []string{"query"},
		"additionalProperties": false,
	}
}

// NewTavily 创建 Tavily 检索代理。
// 检索失败以 {"error": …} 编码进结果，保持与其余工具一致的容错行为。
func NewTavily(cfg Config, provider llm.Provider, client *tavily.Client, logger *zap.Logger) *ToolCalling {
	if cfg.Name == "" {
		cfg.Name = TavilyAgentName
	}
	if cfg.Description == "" {
		cfg.Description = tavilyDescription
	}

	spec := ToolSpec{
		Schema: tavilySchema,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query := stringArg(args, "query")
			if query == "" {
				return "", fmt.Errorf("search query is missing from the tool response")
			}

			var payload any
			results, err := client.Search(ctx, query)
			if err != nil {
				payload = map[string]string{"error": err.Error()}
			} else {
				payload = map[string]any{"results": results}
			}

			encoded, err := json.Marshal(payload)
			if err != nil {
				return "", fmt.Errorf("encode search results: %w", err)
			}
			return string(encoded), nil
		},
	}
	return NewToolCalling(cfg, provider, spec, logger)
}
