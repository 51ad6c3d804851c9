package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/internal/tlsutil"
)

const defaultBaseURL = "https://api.tavily.com"

// 这些错误携带面向用户的文案，代理层直接把 Error() 写入结果。
var (
	ErrMissingAPIKey      = errors.New("API key is missing. Please provide a valid API key.")
	ErrInvalidAPIKey      = errors.New("Invalid API key provided. Please check your API key.")
	ErrUsageLimitExceeded = errors.New("Usage limit exceeded. Please check your plan's usage limits or consider upgrading.")
)

// Config 配置 Tavily 客户端。
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// MaxResults 限制单次检索返回的条数，非正数时由服务端决定。
	MaxResults int
}

// Client 调用 Tavily 检索 API。
type Client struct {
	cfg    Config
	httpc  *http.Client
	logger *zap.Logger
}

// NewClient 创建 Tavily 客户端。
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		httpc:  tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger,
	}
}

// Result 是精简后的单条检索结果。
type Result struct {
	Query   string `json:"query"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type wireRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

type wireResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type wireResponse struct {
	Results []wireResult `json:"results"`
}

// Search 执行检索并返回精简结果。
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	payload, err := json.Marshal(wireRequest{
		APIKey:     c.cfg.APIKey,
		Query:      query,
		MaxResults: c.cfg.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidAPIKey
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrUsageLimitExceeded
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("tavily search returned status %d", resp.StatusCode)
	}

	var raw wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}

	results := make([]Result, 0, len(raw.Results))
	for _, r := range raw.Results {
		out := Result{
			Query:   query,
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
		}
		if out.Title == "" {
			out.Title = "No Title"
		}
		if out.URL == "" {
			out.URL = "#"
		}
		if out.Content == "" {
			out.Content = "No Content"
		}
		results = append(results, out)
	}
	return results, nil
}
