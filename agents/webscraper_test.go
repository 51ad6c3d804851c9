package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/metaexpert/tools/scraper"
)

func TestWebScraperAgentFullFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><body><p>First paragraph.</p><p>Second paragraph.</p></body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	s := scraper.New(scraper.Config{}, nil)
	pageURL := server.URL + "/page"
	missingURL := server.URL + "/gone"

	provider := newFakeProvider(`{"urls": ["` + pageURL + `", "` + missingURL + `"]}`)
	agent := NewWebScraper(Config{}, provider, s, nil)

	assert.Equal(t, WebScraperAgentName, agent.Name())
	assert.Equal(t, webScraperDescription, agent.Description())

	pad := NewWorkpad()
	pad.Append(MetaAgentName, metaDocument(WebScraperAgentName, "scrape both pages"))
	require.NoError(t, agent.Invoke(context.Background(), pad))

	doc, ok := pad.Last(WebScraperAgentName)
	require.True(t, ok)

	var combined map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(doc.Content), &combined))
	require.Len(t, combined, 2)

	page := combined[pageURL]
	assert.Equal(t, pageURL, page["source"])
	assert.Equal(t, "First paragraph.\nSecond paragraph.", page["content"])

	missing := combined[missingURL]
	require.Contains(t, missing, "error")
	assert.Contains(t, missing["error"], "404")
}

func TestWebScraperAgentUnsupportedDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{0x00, 0x01, 0x02, 0x03})
	}))
	t.Cleanup(server.Close)

	s := scraper.New(scraper.Config{}, nil)
	provider := newFakeProvider(`{"urls": ["` + server.URL + `"]}`)
	agent := NewWebScraper(Config{}, provider, s, nil)

	pad := NewWorkpad()
	pad.Append(MetaAgentName, metaDocument(WebScraperAgentName, "scrape it"))
	require.NoError(t, agent.Invoke(context.Background(), pad))

	doc, ok := pad.Last(WebScraperAgentName)
	require.True(t, ok)

	var combined map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(doc.Content), &combined))
	assert.Equal(t, scraper.UnsupportedMessage, combined[server.URL]["content"])
}

func TestWebScraperAgentMissingURLs(t *testing.T) {
	s := scraper.New(scraper.Config{}, nil)
	provider := newFakeProvider(`{"urls": []}`)
	agent := NewWebScraper(Config{}, provider, s, nil)

	pad := NewWorkpad()
	pad.Append(MetaAgentName, metaDocument(WebScraperAgentName, "go"))

	err := agent.Invoke(context.Background(), pad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URLs are missing from the tool response")
}
