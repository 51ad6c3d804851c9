package serper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatResultsWithSitelinks(t *testing.T) {
	results := []SearchResult{
		{
			Query: "golang",
			Title: "The Go Programming Language",
			Link:  "https://go.dev",
			Sitelinks: []Sitelink{
				{Title: "Docs", Link: "https://go.dev/doc"},
				{Title: "Play", Link: "https://go.dev/play"},
			},
		},
	}

	want := "Query: golang\n" +
		"Title: The Go Programming Language\n" +
		"Link: https://go.dev\n" +
		"Sitelinks:\n" +
		"    - Docs: https://go.dev/doc\n" +
		"    - Play: https://go.dev/play\n" +
		strings.Repeat("-", 40)
	assert.Equal(t, want, FormatResults(results))
}

func TestFormatResultsWithoutSitelinks(t *testing.T) {
	results := []SearchResult{
		{Query: "golang", Title: "No Title", Link: "#"},
		{Query: "golang", Title: "Second", Link: "https://example.com"},
	}

	got := FormatResults(results)
	blocks := strings.Split(got, strings.Repeat("-", 40)+"\n")
	assert.Len(t, blocks, 2)
	assert.Contains(t, got, "Sitelinks: None")
	assert.Contains(t, got, "Query: golang\nTitle: No Title\nLink: #\n")
}

func TestFormatResultsEmpty(t *testing.T) {
	assert.Equal(t, "", FormatResults(nil))
}

func TestFormatShopping(t *testing.T) {
	items := []ShoppingItem{
		{
			Title:       "Espresso Machine",
			Source:      "CoffeeCo",
			Price:       "$199.99",
			Rating:      "4.5",
			RatingCount: "320",
			Delivery:    "Free delivery",
			Link:        "https://shop.example/1",
		},
	}

	want := "Title: Espresso Machine\n" +
		"Source: CoffeeCo\n" +
		"Price: $199.99\n" +
		"Rating: 4.5 (320 reviews)\n" +
		"Delivery: Free delivery\n" +
		"Link: https://shop.example/1\n" +
		"---"
	assert.Equal(t, want, FormatShopping(items))
}

func TestFormatShoppingJoinsBlocks(t *testing.T) {
	items := []ShoppingItem{
		{Title: "A", Source: "s", Price: "p", Rating: "r", RatingCount: "c", Delivery: "d", Link: "l"},
		{Title: "B", Source: "s", Price: "p", Rating: "r", RatingCount: "c", Delivery: "d", Link: "l"},
	}
	got := FormatShopping(items)
	assert.Equal(t, 2, strings.Count(got, "---"))
	assert.Contains(t, got, "---\nTitle: B")
}
