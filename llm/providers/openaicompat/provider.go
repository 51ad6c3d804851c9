package openaicompat

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

// Config 配置一个 OpenAI 兼容 Provider。
type Config struct {
	// ProviderName 是该实例的标识，如 "openai"、"mistral"。
	ProviderName string

	APIKey        string
	BaseURL       string
	DefaultModel  string
	FallbackModel string

	// Timeout 是整体 HTTP 超时，默认 30s。
	Timeout time.Duration

	// EndpointPath 是聊天补全路径，默认 "/v1/chat/completions"。
	EndpointPath string

	// ModelsEndpoint 是健康检查使用的模型列表路径，默认 "/v1/models"。
	ModelsEndpoint string

	// SupportsJSONSchema 声明上游是否原生支持 json_schema 输出约束。
	SupportsJSONSchema bool

	// JSONSchemaName 是 json_schema 约束缺省的 schema 名称。
	JSONSchemaName string

	// BuildHeaders 自定义认证头；为 nil 时使用 Bearer token。
	BuildHeaders func(req *http.Request, apiKey string)

	// RequestHook 在序列化前修改线格式请求体，
	// 用于各提供者的方言（消息折叠、扩展字段、特殊模型处理）。
	RequestHook func(req *llm.ChatRequest, body *providers.OpenAICompatRequest)
}

// Provider 是 OpenAI 兼容协议的通用实现。
type Provider struct {
	Cfg    Config
	Client *http.Client
	Logger *zap.Logger
}

// New 创建 OpenAI 兼容 Provider 并填充缺省配置。
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.ModelsEndpoint == "" {
		cfg.ModelsEndpoint = "/v1/models"
	}
	if cfg.JSONSchemaName == "" {
		cfg.JSONSchemaName = "open_ai_agent"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		Cfg:    cfg,
		Client: tlsutil.SecureHTTPClient(cfg.Timeout),
		Logger: logger,
	}
}

// Name 返回 Provider 标识。
func (p *Provider) Name() string { return p.Cfg.ProviderName }

// SupportsJSONSchema 声明 json_schema 支持情况。
func (p *Provider) SupportsJSONSchema() bool { return p.Cfg.SupportsJSONSchema }

func (p *Provider) endpoint() string {
	return strings.TrimRight(p.Cfg.BaseURL, "/") + p.Cfg.EndpointPath
}

func (p *Provider) buildHeaders(req *http.Request) {
	if p.Cfg.BuildHeaders != nil {
		p.Cfg.BuildHeaders(req, p.Cfg.APIKey)
		return
	}
	providers.BearerTokenHeaders(req, p.Cfg.APIKey)
}

// buildBody 将统一请求转换为线格式并应用 RequestHook。
func (p *Provider) buildBody(req *llm.ChatRequest, stream bool) *providers.OpenAICompatRequest {
	temp := req.Temperature
	body := &providers.OpenAICompatRequest{
		Model:       providers.ChooseModel(req, p.Cfg.DefaultModel, p.Cfg.FallbackModel),
		Messages:    providers.ConvertMessagesToOpenAI(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: &temp,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Stream:      stream,
	}
	body.ResponseFormat = providers.BuildResponseFormat(req.ResponseFormat, p.Cfg.SupportsJSONSchema, p.Cfg.JSONSchemaName)
	if p.Cfg.RequestHook != nil {
		p.Cfg.RequestHook(req, body)
	}
	return body
}

// Completion 执行非流式补全。
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	body := p.buildBody(req, false)
	payload, err := json.Marshal(body)
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

	start := time.Now()
	resp, err := p.Client.Do(httpReq)
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

	var oa providers.OpenAICompatResponse
	if err := json.NewDecoder(resp.Body).Decode(&oa); err != nil {
		return nil, llm.NewError(llm.ErrUpstreamError, "decode response").
			WithCause(err).WithRetryable(true).WithProvider(p.Name())
	}

	p.Logger.Debug("completion finished",
		zap.String("provider", p.Name()),
		zap.String("model", oa.Model),
		zap.Duration("latency", time.Since(start)))

	out := providers.ToLLMChatResponse(oa, p.Name())
	out.CreatedAt = time.Now()
	return out, nil
}

// Stream 执行流式补全，通过 SSE 协议逐块返回增量。
func (p *Provider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	body := p.buildBody(req, true)
	payload, err := json.Marshal(body)
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

	resp, err := p.Client.Do(httpReq)
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

// streamSSE 解析 SSE 响应体，将 data: 行转换为 StreamChunk。
// 流在 [DONE] 标记、读错误或 ctx 取消时结束。
func (p *Provider) streamSSE(ctx context.Context, resp *http.Response, ch chan<- llm.StreamChunk) {
	defer close(ch)
	defer providers.SafeCloseBody(resp.Body)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return
		}

		var chunk providers.OpenAICompatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			p.Logger.Warn("skip malformed stream chunk",
				zap.String("provider", p.Name()),
				zap.Error(err))
			continue
		}

		for _, c := range chunk.Choices {
			out := llm.StreamChunk{
				ID:           chunk.ID,
				Provider:     p.Name(),
				Model:        chunk.Model,
				Index:        c.Index,
				FinishReason: c.FinishReason,
			}
			if c.Delta != nil {
				out.Delta = types.Message{
					Role:    types.RoleAssistant,
					Content: c.Delta.Content,
				}
			}
			if chunk.Usage != nil {
				out.Usage = &llm.ChatUsage{
					PromptTokens:     chunk.Usage.PromptTokens,
					CompletionTokens: chunk.Usage.CompletionTokens,
					TotalTokens:      chunk.Usage.TotalTokens,
				}
			}

			select {
			case ch <- out:
			case <-ctx.Done():
				return
			}
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		errChunk := llm.StreamChunk{
			Provider: p.Name(),
			Err: llm.NewError(llm.ErrUpstreamError, "stream read failed").
				WithCause(err).WithRetryable(true).WithProvider(p.Name()),
		}
		select {
		case ch <- errChunk:
		case <-ctx.Done():
		}
	}
}

// HealthCheck 通过模型列表端点探测上游可用性。
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	endpoint := strings.TrimRight(p.Cfg.BaseURL, "/") + p.Cfg.ModelsEndpoint

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build health check request: %w", err)
	}
	p.buildHeaders(httpReq)

	start := time.Now()
	resp, err := p.Client.Do(httpReq)
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
