package llm

import (
	"context"
	"time"

	"github.com/BaSui01/metaexpert/types"
)

// ResponseFormat 的 Type 取值。
const (
	// ResponseFormatJSONObject 要求模型输出任意合法 JSON 对象。
	ResponseFormatJSONObject = "json_object"
	// ResponseFormatJSONSchema 要求模型输出符合给定 JSON Schema 的对象。
	// 仅部分 Provider 原生支持，见 Provider.SupportsJSONSchema。
	ResponseFormatJSONSchema = "json_schema"
)

// ResponseFormat 约束模型输出为结构化 JSON。
// 不支持 json_schema 的 Provider 会降级为 json_object 并在提示词中
// 内联 schema 描述。
type ResponseFormat struct {
	Type       string         `json:"type"`
	SchemaName string         `json:"schema_name,omitempty"`
	Strict     bool           `json:"strict,omitempty"`
	Schema     map[string]any `json:"schema,omitempty"`
}

// ChatRequest 是跨 Provider 的统一补全请求。
type ChatRequest struct {
	TraceID        string            `json:"trace_id,omitempty"`
	Model          string            `json:"model"`
	Messages       []types.Message   `json:"messages"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	Temperature    float32           `json:"temperature"`
	TopP           float32           `json:"top_p,omitempty"`
	Stop           []string          `json:"stop,omitempty"`
	ResponseFormat *ResponseFormat   `json:"response_format,omitempty"`
	Timeout        time.Duration     `json:"timeout,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// ChatUsage 记录 token 消耗。
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatChoice 是一条候选回复。
type ChatChoice struct {
	Index        int           `json:"index"`
	Message      types.Message `json:"message"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

// ChatResponse 是跨 Provider 的统一补全响应。
type ChatResponse struct {
	ID        string       `json:"id,omitempty"`
	Provider  string       `json:"provider,omitempty"`
	Model     string       `json:"model"`
	Choices   []ChatChoice `json:"choices"`
	Usage     ChatUsage    `json:"usage,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// StreamChunk 是流式输出的单个增量。
type StreamChunk struct {
	ID           string        `json:"id,omitempty"`
	Provider     string        `json:"provider,omitempty"`
	Model        string        `json:"model,omitempty"`
	Index        int           `json:"index,omitempty"`
	Delta        types.Message `json:"delta"`
	FinishReason string        `json:"finish_reason,omitempty"`
	Usage        *ChatUsage    `json:"usage,omitempty"` // 最终 chunk 可带 usage
	Err          *Error        `json:"error,omitempty"`
}

// HealthStatus 描述 Provider 的健康状况。
type HealthStatus struct {
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency"`
	ErrorRate float64       `json:"error_rate"`
}

// Provider 是 LLM 提供者的统一接口。
type Provider interface {
	// Completion 执行一次非流式补全。
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Stream 执行流式补全，chunk 通过只读 channel 返回。
	// channel 关闭表示流结束；错误通过 StreamChunk.Err 传递。
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)

	// HealthCheck 探测上游可用性。
	HealthCheck(ctx context.Context) (*HealthStatus, error)

	// Name 返回 Provider 标识（如 "openai"、"anthropic"）。
	Name() string

	// SupportsJSONSchema 声明是否原生支持 json_schema 约束输出。
	// 返回 false 的实现降级为 json_object 加提示词内联 schema。
	SupportsJSONSchema() bool
}
