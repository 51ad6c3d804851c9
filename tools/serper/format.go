package serper

import (
	"fmt"
	"strings"
)

// FormatResults 将网页/学术检索结果渲染为纯文本块，供下游模型消费。
func FormatResults(results []SearchResult) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		var b strings.Builder
		fmt.Fprintf(&b, "Query: %s\n", r.Query)
		fmt.Fprintf(&b, "Title: %s\n", r.Title)
		fmt.Fprintf(&b, "Link: %s", r.Link)
		if len(r.Sitelinks) > 0 {
			b.WriteString("\nSitelinks:\n")
			lines := make([]string, 0, len(r.Sitelinks))
			for _, s := range r.Sitelinks {
				lines = append(lines, fmt.Sprintf("    - %s: %s", s.Title, s.Link))
			}
			b.WriteString(strings.Join(lines, "\n"))
		} else {
			b.WriteString("\nSitelinks: None")
		}
		b.WriteString("\n")
		b.WriteString(strings.Repeat("-", 40))
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n")
}

// FormatShopping 将购物检索结果渲染为纯文本块。
func FormatShopping(items []ShoppingItem) string {
	blocks := make([]string, 0, len(items))
	for _, it := range items {
		var b strings.Builder
		fmt.Fprintf(&b, "Title: %s\n", it.Title)
		fmt.Fprintf(&b, "Source: %s\n", it.Source)
		fmt.Fprintf(&b, "Price: %s\n", it.Price)
		fmt.Fprintf(&b, "Rating: %s (%s reviews)\n", it.Rating, it.RatingCount)
		fmt.Fprintf(&b, "Delivery: %s\n", it.Delivery)
		fmt.Fprintf(&b, "Link: %s\n", it.Link)
		b.WriteString("---")
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n")
}
