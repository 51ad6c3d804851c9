package ollama

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

const defaultHost = "http://localhost:11434"

// Config 配置 Ollama Provider。
type Config struct {
	// Host 是 Ollama 服务地址，默认 http://localhost:11434。
	Host string

	Model   string
	Timeout time.Duration
}

// Provider 实现 Ollama 本地推理。
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New 创建 Ollama Provider。
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.Timeout == 0 {
		// 本地推理冷启动可能较慢。
		cfg.Timeout = 120 * time.Second
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

// Name 返回 "ollama"。
func (p *Provider) Name() string { return "ollama" }

// SupportsJSONSchema 返回 false，JSON 输出依赖 format:"json"。
func (p *Provider) SupportsJSONSchema() bool { return false }

// 线格式类型。

type wireRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	System      string  `json:"system,omitempty"`
	Stream      bool    `json:"stream"`
	Temperature float32 `json:"temperature"`
	Format      string  `json:"format,omitempty"`
}

type wireResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

// buildBody 将统一请求转换为 /api/generate 线格式。
// system 消息合并进 system 字段，其余消息合并为 prompt。
func (p *Provider) buildBody(req *llm.ChatRequest, stream bool) *wireRequest {
	var systemParts, promptParts []string
	for _, m := range req.Messages {
		if m.Role == types.RoleSystem {
			systemParts = append(systemParts, m.Content)
		} else {
			promptParts = append(promptParts, m.Content)
		}
	}

	body := &wireRequest{
		Model:       providers.ChooseModel(req, p.cfg.Model, ""),
		Prompt:      strings.Join(promptParts, "\n\n"),
		System:      strings.Join(systemParts, "\n\n"),
		Stream:      stream,
		Temperature: req.Temperature,
	}
	if req.ResponseFormat != nil {
		body.Format = "json"
	}
	return body
}

func (p *Provider) endpoint() string {
	return strings.TrimRight(p.cfg.Host, "/") + "/api/generate"
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
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, llm.NewError(llm.ErrUpstreamTimeout, "request timed out").
				WithCause(err).WithRetryable(true).WithProvider(p.Name())
		}
		return nil, llm.NewError(llm.ErrProviderUnavailable, "ollama unreachable").
			WithCause(err).WithRetryable(true).WithProvider(p.Name())
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

	return &llm.ChatResponse{
		Provider: p.Name(),
		Model:    wire.Model,
		Choices: []llm.ChatChoice{
			{
				Message:      types.NewAssistantMessage(wire.Response),
				FinishReason: wire.DoneReason,
			},
		},
		Usage: llm.ChatUsage{
			PromptTokens:     wire.PromptEvalCount,
			CompletionTokens: wire.EvalCount,
			TotalTokens:      wire.PromptEvalCount + wire.EvalCount,
		},
		CreatedAt: time.Now(),
	}, nil
}

// Stream 执行流式补全，Ollama 以 JSONL 返回增量。
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
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, llm.NewError(llm.ErrProviderUnavailable, "ollama unreachable").
			WithCause(err).WithRetryable(true).WithProvider(p.Name())
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
			if line == "" {
				continue
			}

			var wire wireResponse
			if err := json.Unmarshal([]byte(line), &wire); err != nil {
				continue
			}

			chunk := llm.StreamChunk{
				Provider: p.Name(),
				Model:    wire.Model,
				Delta:    types.Message{Role: types.RoleAssistant, Content: wire.Response},
			}
			if wire.Done {
				chunk.FinishReason = wire.DoneReason
				if chunk.FinishReason == "" {
					chunk.FinishReason = "stop"
				}
				chunk.Usage = &llm.ChatUsage{
					PromptTokens:     wire.PromptEvalCount,
					CompletionTokens: wire.EvalCount,
					TotalTokens:      wire.PromptEvalCount + wire.EvalCount,
				}
			}

			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}

			if wire.Done {
				return
			}
		}
	}()
	return ch, nil
}

// HealthCheck 通过 /api/tags 探测本地服务可用性。
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	endpoint := strings.TrimRight(p.cfg.Host, "/") + "/api/tags"
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
