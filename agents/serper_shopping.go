package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/tools/serper"
)

// SerperShoppingAgentName 是购物检索代理的默认名。
const SerperShoppingAgentName = "serper_shopping_agent"

const serperShoppingDescription = `# Functionality:
This agent performs Google Shopping searches based on a list of queries you provide. It returns a formatted list of shopping results, including the title, source, price, rating, delivery information, and link for each product.

## Inputs:
- **queries**: A list of shopping search query strings.
- **location**: Geographic location code for the search (e.g., 'us', 'gb', 'nl', 'ca'). Defaults to 'us'.

## Outputs:
- A formatted string of shopping results, including:
    - Title
    - Source
    - Price
    - Rating and review count
    - Delivery information
    - Link

## When to Use:
- When the requirements involve products, prices, or purchase options.
- When you need to compare offers across multiple merchants.

## Important Notes:
- This tool **only** provides shopping result summaries; it does **not** access or retrieve content from the linked product pages.
- To obtain detailed content from a product page, use the **web_scraper_agent** with the link obtained from this tool.

# Remember
You should provide the inputs as suggested.

--------------------------------`

// NewSerperShopping 创建购物检索代理。
// 参数模式与网页检索代理一致，走 /shopping 端点与购物格式化器。
func NewSerperShopping(cfg Config, provider llm.Provider, client *serper.Client, logger *zap.Logger) *ToolCalling {
	if cfg.Name == "" {
		cfg.Name = SerperShoppingAgentName
	}
	if cfg.Description == "" {
		cfg.Description = serperShoppingDescription
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
				items, err := client.Shopping(ctx, query, location)
				if err != nil {
					return "", err
				}
				return serper.FormatShopping(items), nil
			}), nil
		},
	}
	return NewToolCalling(cfg, provider, spec, logger)
}
