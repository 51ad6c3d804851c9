package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScrapeExtractsParagraphs(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head><title>Test Page</title><style>p { color: red }</style></head>
<body>
	<nav><a href="/">Home</a></nav>
	<p>First paragraph with <b>bold</b> text.</p>
	<div><p>  Second paragraph.  </p></div>
	<p></p>
	<footer>footer text</footer>
</body>
</html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	s := New(Config{}, zap.NewNop())
	result, err := s.Scrape(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, server.URL, result.Source)
	assert.Equal(t, "First paragraph with bold text.\nSecond paragraph.", result.Content)
}

func TestScrapeDetectsHTMLWithoutContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte("<html><body><p>Sniffed paragraph.</p></body></html>"))
	}))
	defer server.Close()

	s := New(Config{}, zap.NewNop())
	result, err := s.Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Sniffed paragraph.", result.Content)
}

func TestScrapeUnsupportedContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"not": "a document"}`))
	}))
	defer server.Close()

	s := New(Config{}, zap.NewNop())
	result, err := s.Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, UnsupportedMessage, result.Content)
}

func TestScrapeMalformedPDFFallsBackToMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 this is not a real pdf body"))
	}))
	defer server.Close()

	s := New(Config{}, zap.NewNop())
	result, err := s.Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, UnsupportedMessage, result.Content)
}

func TestScrapeReturnsErrorOnHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s := New(Config{}, zap.NewNop())
	_, err := s.Scrape(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestScrapeReturnsErrorOnUnreachableHost(t *testing.T) {
	s := New(Config{}, zap.NewNop())
	_, err := s.Scrape(context.Background(), "http://127.0.0.1:1/nope")
	require.Error(t, err)
}

func TestScrapeRespectsBodyLimit(t *testing.T) {
	big := "<html><body><p>" + strings.Repeat("a", 4096) + "</p></body></html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(big))
	}))
	defer server.Close()

	s := New(Config{MaxBodyBytes: 64}, zap.NewNop())
	result, err := s.Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Less(t, len(result.Content), 128)
}

func TestExtractParagraphsIgnoresScriptAndStyle(t *testing.T) {
	text, err := extractParagraphs([]byte(`<html><body>
		<script>var p = "<p>not me</p>";</script>
		<p>Visible.</p>
	</body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Visible.", text)
}
