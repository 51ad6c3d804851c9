package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/internal/tlsutil"
	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/llm/providers"
	"github.com/BaSui01/metaexpert/types"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"

	// jsonInstruction 在请求 JSON 输出时追加到折叠后的提示词末尾。
	jsonInstruction = "\nYou must respond in JSON format."
)

// Config 配置 Gemini Provider。
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	Timeout       time.Duration
}

// Provider 实现 Google Gemini generateContent API。
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New 创建 Gemini Provider。
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
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

// Name 返回 "gemini"。
func (p *Provider) Name() string { return "gemini" }

// SupportsJSONSchema 返回 false，JSON 输出依赖 response_mime_type。
func (p *Provider) SupportsJSONSchema() bool { return false }

// 线格式类型。

type wirePart struct {
	Text string `json:"text"`
}

type wireContent struct {
	Parts []wirePart `json:"parts"`
	Role  string     `json:"role,omitempty"`
}

type generationConfig struct {
	Temperature      *float32 `json:"temperature,omitempty"`
	TopP             float32  `json:"topP,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"response_mime_type,omitempty"`
	StopSequences    []string `json:"stopSequences,omitempty"`
}

type wireRequest struct {
	Contents         []wireContent     `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type wireCandidate struct {
	Content      wireContent `json:"content"`
	FinishReason string      `json:"finishReason"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type wireResponse struct {
	Candidates    []wireCandidate `json:"candidates"`
	UsageMetadata *usageMetadata  `json:"usageMetadata,omitempty"`
}

// requestURL 组装 generateContent 端点，API key 走查询参数。
func (p *Provider) requestURL(model, verb string, sse bool) string {
	u := fmt.Sprintf("%s/v1/models/%s:%s?key=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), model, verb, url.QueryEscape(p.cfg.APIKey))
	if sse {
		u += "&alt=sse"
	}
	return u
}

// buildBody 折叠消息并构造 Gemini 线格式。
// generateContent 对 system 指令的处理与聊天接口不同，这里与
// 其他单轮 Provider 保持一致：角色前缀折叠进一个 text part。
func (p *Provider) buildBody(req *llm.ChatRequest) *wireRequest {
	parts := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		parts = append(parts, string(m.Role)+":"+m.Content)
	}
	text := strings.Join(parts, "\n\n")

	gen := &generationConfig{
		TopP:            req.TopP,
		MaxOutputTokens: req.MaxTokens,
		StopSequences:   req.Stop,
	}
	temp := req.Temperature
	gen.Temperature = &temp

	if req.ResponseFormat != nil {
		gen.ResponseMimeType = "application/json"
		text += jsonInstruction
	}

	return &wireRequest{
		Contents:         []wireContent{{Parts: []wirePart{{Text: text}}}},
		GenerationConfig: gen,
	}
}

// Completion 执行非流式补全。
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	model := providers.ChooseModel(req, p.cfg.Model, p.cfg.FallbackModel)
	payload, err := json.Marshal(p.buildBody(req))
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, "marshal request").
			WithCause(err).WithProvider(p.Name())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.requestURL(model, "generateContent", false), bytes.NewReader(payload))
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, "build request").
			WithCause(err).WithProvider(p.Name())
	}
	httpReq.Header.Set("Content-Type", "application/json")

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

	out := &llm.ChatResponse{
		Provider:  p.Name(),
		Model:     model,
		CreatedAt: time.Now(),
	}
	for i, cand := range wire.Candidates {
		var text strings.Builder
		for _, part := range cand.Content.Parts {
			text.WriteString(part.Text)
		}
		out.Choices = append(out.Choices, llm.ChatChoice{
			Index:        i,
			Message:      types.NewAssistantMessage(text.String()),
			FinishReason: strings.ToLower(cand.FinishReason),
		})
	}
	if wire.UsageMetadata != nil {
		out.Usage = llm.ChatUsage{
			PromptTokens:     wire.UsageMetadata.PromptTokenCount,
			CompletionTokens: wire.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      wire.UsageMetadata.TotalTokenCount,
		}
	}
	return out, nil
}

// Stream 通过 streamGenerateContent 的 SSE 形态执行流式补全。
func (p *Provider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	model := providers.ChooseModel(req, p.cfg.Model, p.cfg.FallbackModel)
	payload, err := json.Marshal(p.buildBody(req))
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, "marshal request").
			WithCause(err).WithProvider(p.Name())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.requestURL(model, "streamGenerateContent", true), bytes.NewReader(payload))
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, "build request").
			WithCause(err).WithProvider(p.Name())
	}
	httpReq.Header.Set("Content-Type", "application/json")

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
	go func() {
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

			var wire wireResponse
			if err := json.Unmarshal([]byte(data), &wire); err != nil {
				continue
			}

			for _, cand := range wire.Candidates {
				var text strings.Builder
				for _, part := range cand.Content.Parts {
					text.WriteString(part.Text)
				}
				chunk := llm.StreamChunk{
					Provider:     p.Name(),
					Model:        model,
					Delta:        types.Message{Role: types.RoleAssistant, Content: text.String()},
					FinishReason: strings.ToLower(cand.FinishReason),
				}
				select {
				case ch <- chunk:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// HealthCheck 通过模型列表端点探测上游可用性。
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	endpoint := fmt.Sprintf("%s/v1/models?key=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), url.QueryEscape(p.cfg.APIKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build health check request: %w", err)
	}

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
