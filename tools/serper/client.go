package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/internal/tlsutil"
)

const defaultBaseURL = "https://google.serper.dev"

// Cache 缓存检索结果，避免相同查询重复计费。
// internal/cache.Manager 与本包的 NewMemoryCache 均满足该接口。
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Config 配置 Serper 客户端。
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// Cache 为 nil 时不缓存。
	Cache    Cache
	CacheTTL time.Duration
}

// Client 调用 Serper.dev API。
type Client struct {
	cfg    Config
	httpc  *http.Client
	logger *zap.Logger
}

// NewClient 创建 Serper 客户端。
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 30 * time.Minute
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

// Sitelink 是搜索结果下的子链接。
type Sitelink struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// SearchResult 是精简后的网页/学术检索结果。
type SearchResult struct {
	Query     string     `json:"query"`
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Sitelinks []Sitelink `json:"sitelinks"`
}

// ShoppingItem 是精简后的购物检索结果。
type ShoppingItem struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	Price       string `json:"price"`
	Rating      string `json:"rating"`
	RatingCount string `json:"rating_count"`
	Delivery    string `json:"delivery"`
	Link        string `json:"link"`
}

// post 发送检索请求。Serper 的全部端点共用同一请求格式。
func (c *Client) post(ctx context.Context, endpoint, query, location string, dest any) error {
	payload, err := json.Marshal(map[string]string{"q": query, "gl": location})
	if err != nil {
		return fmt.Errorf("marshal serper request: %w", err)
	}

	url := c.cfg.BaseURL + "/" + endpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build serper request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-KEY", c.cfg.APIKey)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("serper %s request: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("serper %s returned status %d", endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode serper %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) cacheKey(endpoint, query, location string) string {
	return fmt.Sprintf("serper:%s:%s:%s", endpoint, location, query)
}

type organicEntry struct {
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Sitelinks []Sitelink `json:"sitelinks"`
}

// reduceOrganic 将原始 organic 结果精简为 SearchResult。
// 缺失字段使用占位值，保证格式化输出稳定。
func reduceOrganic(query string, entries []organicEntry) []SearchResult {
	results := make([]SearchResult, 0, len(entries))
	for _, e := range entries {
		r := SearchResult{
			Query:     query,
			Title:     e.Title,
			Link:      e.Link,
			Sitelinks: e.Sitelinks,
		}
		if r.Title == "" {
			r.Title = "No Title"
		}
		if r.Link == "" {
			r.Link = "#"
		}
		if r.Sitelinks == nil {
			r.Sitelinks = []Sitelink{}
		}
		results = append(results, r)
	}
	return results
}

// Search 执行 Google 网页检索。
func (c *Client) Search(ctx context.Context, query, location string) ([]SearchResult, error) {
	return c.organicSearch(ctx, "search", query, location)
}

// Scholar 执行 Google Scholar 学术检索。
func (c *Client) Scholar(ctx context.Context, query, location string) ([]SearchResult, error) {
	return c.organicSearch(ctx, "scholar", query, location)
}

func (c *Client) organicSearch(ctx context.Context, endpoint, query, location string) ([]SearchResult, error) {
	key := c.cacheKey(endpoint, query, location)
	if c.cfg.Cache != nil {
		var cached []SearchResult
		if err := c.cfg.Cache.GetJSON(ctx, key, &cached); err == nil {
			c.logger.Debug("serper cache hit", zap.String("endpoint", endpoint), zap.String("query", query))
			return cached, nil
		}
	}

	var raw struct {
		Organic []organicEntry `json:"organic"`
	}
	if err := c.post(ctx, endpoint, query, location, &raw); err != nil {
		return nil, err
	}

	results := reduceOrganic(query, raw.Organic)

	if c.cfg.Cache != nil {
		if err := c.cfg.Cache.SetJSON(ctx, key, results, c.cfg.CacheTTL); err != nil {
			c.logger.Warn("serper cache store failed", zap.Error(err))
		}
	}
	return results, nil
}

// Shopping 执行 Google Shopping 购物检索。
func (c *Client) Shopping(ctx context.Context, query, location string) ([]ShoppingItem, error) {
	key := c.cacheKey("shopping", query, location)
	if c.cfg.Cache != nil {
		var cached []ShoppingItem
		if err := c.cfg.Cache.GetJSON(ctx, key, &cached); err == nil {
			c.logger.Debug("serper cache hit", zap.String("endpoint", "shopping"), zap.String("query", query))
			return cached, nil
		}
	}

	var raw struct {
		Shopping []map[string]any `json:"shopping"`
	}
	if err := c.post(ctx, "shopping", query, location, &raw); err != nil {
		return nil, err
	}

	items := make([]ShoppingItem, 0, len(raw.Shopping))
	for _, entry := range raw.Shopping {
		items = append(items, ShoppingItem{
			Title:       stringField(entry, "title", "No Title"),
			Source:      stringField(entry, "source", "Source not available"),
			Price:       stringField(entry, "price", "Price not available"),
			Rating:      stringField(entry, "rating", "No rating"),
			RatingCount: stringField(entry, "ratingCount", "No rating count"),
			Delivery:    stringField(entry, "delivery", "Delivery information not available"),
			Link:        stringField(entry, "link", "#"),
		})
	}

	if c.cfg.Cache != nil {
		if err := c.cfg.Cache.SetJSON(ctx, key, items, c.cfg.CacheTTL); err != nil {
			c.logger.Warn("serper cache store failed", zap.Error(err))
		}
	}
	return items, nil
}

// stringField 提取任意类型字段的文本形态。
// 购物结果中评分是数字、价格是字符串，统一转为展示文本。
func stringField(entry map[string]any, key, fallback string) string {
	v, ok := entry[key]
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return fallback
		}
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
