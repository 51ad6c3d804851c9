package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/internal/tlsutil"
	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/llm/providers"
	"github.com/BaSui01/metaexpert/types"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultVersion   = "2023-06-01"
	defaultMaxTokens = 4096

	// promptCachingBeta 启用 system 提示词缓存。
	promptCachingBeta = "prompt-caching-2024-07-31"

	// jsonInstruction 在请求 JSON 输出时追加到用户消息末尾。
	jsonInstruction = " Your output must be JSON formatted. Just return the specified JSON format, do not prepend your response with anything."
)

// Config 配置 Anthropic Provider。
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	Timeout       time.Duration

	// MaxTokens 是响应上限，Messages API 的必填字段。默认 4096。
	MaxTokens int

	// EnablePromptCaching 为 system 块附加 cache_control 并启用 beta 头。
	EnablePromptCaching bool
}

// Provider 实现 Anthropic Messages API。
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New 创建 Anthropic Provider。
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger,
	}
}

// Name 返回 "anthropic"。
func (p *Provider) Name() string { return "anthropic" }

// SupportsJSONSchema 返回 false，结构化输出依赖提示词约束。
func (p *Provider) SupportsJSONSchema() bool { return false }

// 线格式类型。

type systemBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *cacheControl `json:"cache_control,omitempty"`
}

type cacheControl struct {
	Type string `json:"type"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      any           `json:"system,omitempty"`
	Messages    []wireMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	TopP        float32       `json:"top_p,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
	StopSeq     []string      `json:"stop_sequences,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type wireResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      wireUsage      `json:"usage"`
}

func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", defaultVersion)
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.EnablePromptCaching {
		req.Header.Set("anthropic-beta", promptCachingBeta)
	}
}

// buildBody 将统一请求转换为 Messages API 线格式。
// system 消息提升为顶层 system 字段；JSON 输出约束追加到最后一条
// user 消息。
func (p *Provider) buildBody(req *llm.ChatRequest, stream bool) *wireRequest {
	var systemTexts []string
	var msgs []wireMessage
	for _, m := range req.Messages {
		switch m.Role {
		case types.RoleSystem:
			systemTexts = append(systemTexts, m.Content)
		default:
			msgs = append(msgs, wireMessage{Role: string(m.Role), Content: m.Content})
		}
	}

	if req.ResponseFormat != nil {
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Role == "user" {
				msgs[i].Content += jsonInstruction
				break
			}
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}

	temp := req.Temperature
	body := &wireRequest{
		Model:       providers.ChooseModel(req, p.cfg.Model, p.cfg.FallbackModel),
		MaxTokens:   maxTokens,
		Messages:    msgs,
		Temperature: &temp,
		TopP:        req.TopP,
		Stream:      stream,
		StopSeq:     req.Stop,
	}

	if len(systemTexts) > 0 {
		system := strings.Join(systemTexts, "\n\n")
		if p.cfg.EnablePromptCaching {
			body.System = []systemBlock{
				{Type: "text", Text: system, CacheControl: &cacheControl{Type: "ephemeral"}},
			}
		} else {
			body.System = system
		}
	}
	return body
}

func (p *Provider) endpoint() string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/messages"
}

// Completion 执行非流式补全。
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	payload, err := json.Marshal(p.buildBody(req, false))
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, "marshal request").
			WithCause(err).WithProvider(p.Name())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, "build request").
			WithCause(err).WithProvider(p.Name())
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, llm.NewError(llm.ErrUpstreamTimeout, "request timed out").
				WithCause(err).WithRetryable(true).WithProvider(p.Name())
		}
		return nil, llm.NewError(llm.ErrUpstreamError, "request failed").
			WithCause(err).WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(true).WithProvider(p.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, llm.NewError(llm.ErrUpstreamError, "decode response").
			WithCause(err).WithRetryable(true).WithProvider(p.Name())
	}

	var text strings.Builder
	for _, block := range wire.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &llm.ChatResponse{
		ID:       wire.ID,
		Provider: p.Name(),
		Model:    wire.Model,
		Choices: []llm.ChatChoice{
			{
				Message:      types.NewAssistantMessage(text.String()),
				FinishReason: wire.StopReason,
			},
		},
		Usage: llm.ChatUsage{
			PromptTokens:     wire.Usage.InputTokens,
			CompletionTokens: wire.Usage.OutputTokens,
			TotalTokens:      wire.Usage.InputTokens + wire.Usage.OutputTokens,
		},
		CreatedAt: time.Now(),
	}, nil
}

// 流式事件负载。

type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
	Usage *wireUsage `json:"usage,omitempty"`
}

// Stream 执行流式补全。
func (p *Provider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	payload, err := json.Marshal(p.buildBody(req, true))
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, "marshal request").
			WithCause(err).WithProvider(p.Name())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, "build request").
			WithCause(err).WithProvider(p.Name())
	}
	p.buildHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, llm.NewError(llm.ErrUpstreamError, "request failed").
			WithCause(err).WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(true).WithProvider(p.Name())
	}
	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		providers.SafeCloseBody(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	ch := make(chan llm.StreamChunk)
	go p.streamSSE(ctx, resp, ch)
	return ch, nil
}

func (p *Provider) streamSSE(ctx context.Context, resp *http.Response, ch chan<- llm.StreamChunk) {
	defer close(ch)
	defer providers.SafeCloseBody(resp.Body)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "content_block_delta":
			chunk := llm.StreamChunk{
				Provider: p.Name(),
				Delta:    types.Message{Role: types.RoleAssistant, Content: ev.Delta.Text},
			}
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		case "message_delta":
			chunk := llm.StreamChunk{
				Provider:     p.Name(),
				FinishReason: ev.Delta.StopReason,
			}
			if ev.Usage != nil {
				chunk.Usage = &llm.ChatUsage{
					CompletionTokens: ev.Usage.OutputTokens,
					TotalTokens:      ev.Usage.InputTokens + ev.Usage.OutputTokens,
				}
			}
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		case "message_stop":
			return
		}
	}
}

// HealthCheck 通过模型列表端点探测上游可用性。
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/models"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build health check request: %w", err)
	}
	p.buildHeaders(httpReq)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency, ErrorRate: 1}, nil
	}
	defer providers.SafeCloseBody(resp.Body)

	healthy := resp.StatusCode < 400
	status := &llm.HealthStatus{Healthy: healthy, Latency: latency}
	if !healthy {
		status.ErrorRate = 1
	}
	return status, nil
}
