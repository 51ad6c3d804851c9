package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/BaSui01/metaexpert/internal/tlsutil"
)

// UnsupportedMessage 在文档既不是 HTML 也不是 PDF 时作为抓取内容返回。
const UnsupportedMessage = "Unsupported document type, supported types are 'html' and 'pdf'."

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Result 是单个 URL 的抓取结果。
type Result struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// Config 配置抓取器。
type Config struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// Scraper 抓取并解析网页内容。
type Scraper struct {
	cfg    Config
	httpc  *http.Client
	logger *zap.Logger
}

// New 创建抓取器。
func New(cfg Config, logger *zap.Logger) *Scraper {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		cfg:    cfg,
		httpc:  tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger,
	}
}

// Scrape 抓取单个 URL 并提取文本。
// 网络层失败返回 error；文档类型不受支持时返回带占位内容的 Result。
func (s *Scraper) Scrape(ctx context.Context, url string) (*Result, error) {
	body, contentType, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	switch {
	case isPDF(contentType, body):
		text, perr := extractPDFText(body)
		if perr != nil {
			s.logger.Warn("pdf extraction failed", zap.String("url", url), zap.Error(perr))
			return &Result{Source: url, Content: UnsupportedMessage}, nil
		}
		return &Result{Source: url, Content: text}, nil

	case isHTML(contentType, body):
		text, herr := extractParagraphs(body)
		if herr != nil {
			s.logger.Warn("html extraction failed", zap.String("url", url), zap.Error(herr))
			return &Result{Source: url, Content: UnsupportedMessage}, nil
		}
		return &Result{Source: url, Content: text}, nil

	default:
		s.logger.Debug("unsupported content type",
			zap.String("url", url),
			zap.String("content_type", contentType))
		return &Result{Source: url, Content: UnsupportedMessage}, nil
	}
}

func (s *Scraper) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body of %s: %w", url, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, perr := mime.ParseMediaType(contentType); perr == nil {
		contentType = mediaType
	}
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return body, contentType, nil
}

func isPDF(contentType string, body []byte) bool {
	if strings.Contains(contentType, "application/pdf") {
		return true
	}
	return bytes.HasPrefix(body, []byte("%PDF-"))
}

func isHTML(contentType string, body []byte) bool {
	if strings.Contains(contentType, "text/html") || strings.Contains(contentType, "application/xhtml") {
		return true
	}
	return strings.Contains(http.DetectContentType(body), "text/html")
}

// extractParagraphs 取出全部 <p> 元素的文本并以换行符连接。
func extractParagraphs(body []byte) (string, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var paragraphs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "p" {
			if text := strings.TrimSpace(nodeText(n)); text != "" {
				paragraphs = append(paragraphs, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return strings.Join(paragraphs, "\n"), nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// extractPDFText 提取 PDF 全文。库在畸形 PDF 上可能 panic，这里转为 error。
func extractPDFText(body []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf extraction panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
