package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/types"
)

// MapHTTPError 将 HTTP 状态码映射为带有合适重试标记的 llm.Error。
// 这是所有提供者使用的通用错误映射函数。
func MapHTTPError(status int, msg string, provider string) *llm.Error {
	switch status {
	case http.StatusUnauthorized:
		return &llm.Error{
			Code:       llm.ErrUnauthorized,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case http.StatusForbidden:
		return &llm.Error{
			Code:       llm.ErrForbidden,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case http.StatusTooManyRequests:
		return &llm.Error{
			Code:       llm.ErrRateLimited,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	case http.StatusBadRequest:
		// 检查配额/信用关键字
		msgLower := strings.ToLower(msg)
		if strings.Contains(msgLower, "quota") ||
			strings.Contains(msgLower, "credit") ||
			strings.Contains(msgLower, "limit") {
			return &llm.Error{
				Code:       llm.ErrQuotaExceeded,
				Message:    msg,
				HTTPStatus: status,
				Provider:   provider,
			}
		}
		return &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	case 529: // Model overloaded (used by some providers)
		return &llm.Error{
			Code:       llm.ErrModelOverloaded,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	default:
		return &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  status >= 500,
			Provider:   provider,
		}
	}
}

// ReadErrorMessage 读取响应体中的错误消息。
// 尝试解析 JSON 错误响应，失败则回退到原始文本。
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
		} `json:"error"`
	}

	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		if errResp.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return errResp.Error.Message
	}

	// 回退到原始文本
	return string(data)
}

// OpenAI 兼容 API 通用类型。
// 这些类型被 openai、mistral、groq、vllm 等兼容 OpenAI 的提供者所使用。

// OpenAICompatMessage 表示 OpenAI 兼容的消息格式。
type OpenAICompatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// OpenAICompatJSONSchema 表示 response_format 中的 json_schema 负载。
type OpenAICompatJSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// OpenAICompatResponseFormat 表示 OpenAI 兼容的 response_format 字段。
type OpenAICompatResponseFormat struct {
	Type       string                  `json:"type"`
	JSONSchema *OpenAICompatJSONSchema `json:"json_schema,omitempty"`
}

// OpenAICompatRequest 表示 OpenAI 兼容的聊天完成请求。
// Temperature 为指针以区分「显式 0」与「未设置」；受约束的结构化
// 输出通常要求温度 0，因此不能依赖 omitempty。
type OpenAICompatRequest struct {
	Model          string                      `json:"model"`
	Messages       []OpenAICompatMessage       `json:"messages"`
	MaxTokens      int                         `json:"max_tokens,omitempty"`
	Temperature    *float32                    `json:"temperature,omitempty"`
	TopP           float32                     `json:"top_p,omitempty"`
	Stop           []string                    `json:"stop,omitempty"`
	Stream         bool                        `json:"stream,omitempty"`
	ResponseFormat *OpenAICompatResponseFormat `json:"response_format,omitempty"`

	// GuidedJSON 是 vLLM 的约束解码扩展字段，其他提供者忽略。
	GuidedJSON map[string]any `json:"guided_json,omitempty"`
}

// OpenAICompatChoice 表示 OpenAI 兼容响应中的单个选项。
type OpenAICompatChoice struct {
	Index        int                  `json:"index"`
	FinishReason string               `json:"finish_reason"`
	Message      OpenAICompatMessage  `json:"message"`
	Delta        *OpenAICompatMessage `json:"delta,omitempty"`
}

// OpenAICompatUsage 表示 OpenAI 兼容响应中的 token 用量。
type OpenAICompatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAICompatResponse 表示 OpenAI 兼容的聊天完成响应。
type OpenAICompatResponse struct {
	ID      string               `json:"id"`
	Model   string               `json:"model"`
	Choices []OpenAICompatChoice `json:"choices"`
	Usage   *OpenAICompatUsage   `json:"usage,omitempty"`
	Created int64                `json:"created,omitempty"`
}

// ConvertMessagesToOpenAI 将 types.Message 切片转换为 OpenAI 兼容格式。
func ConvertMessagesToOpenAI(msgs []types.Message) []OpenAICompatMessage {
	out := make([]OpenAICompatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, OpenAICompatMessage{
			Role:    string(m.Role),
			Content: m.Content,
			Name:    m.Name,
		})
	}
	return out
}

// BuildResponseFormat 构造 OpenAI 兼容的 response_format 字段。
// 原生支持 json_schema 的提供者透传 schema；其他提供者降级为
// json_object，schema 约束由调用方内联到提示词中。
func BuildResponseFormat(rf *llm.ResponseFormat, supportsSchema bool, defaultSchemaName string) *OpenAICompatResponseFormat {
	if rf == nil {
		return nil
	}
	if rf.Type == llm.ResponseFormatJSONSchema && supportsSchema && rf.Schema != nil {
		name := rf.SchemaName
		if name == "" {
			name = defaultSchemaName
		}
		return &OpenAICompatResponseFormat{
			Type: "json_schema",
			JSONSchema: &OpenAICompatJSONSchema{
				Name:   name,
				Strict: rf.Strict,
				Schema: rf.Schema,
			},
		}
	}
	return &OpenAICompatResponseFormat{Type: "json_object"}
}

// ToLLMChatResponse 将 OpenAI 兼容的响应转换为 llm.ChatResponse。
func ToLLMChatResponse(oa OpenAICompatResponse, provider string) *llm.ChatResponse {
	choices := make([]llm.ChatChoice, 0, len(oa.Choices))
	for _, c := range oa.Choices {
		choices = append(choices, llm.ChatChoice{
			Index:        c.Index,
			FinishReason: c.FinishReason,
			Message: types.Message{
				Role:    types.RoleAssistant,
				Content: c.Message.Content,
				Name:    c.Message.Name,
			},
		})
	}
	resp := &llm.ChatResponse{
		ID:       oa.ID,
		Provider: provider,
		Model:    oa.Model,
		Choices:  choices,
	}
	if oa.Usage != nil {
		resp.Usage = llm.ChatUsage{
			PromptTokens:     oa.Usage.PromptTokens,
			CompletionTokens: oa.Usage.CompletionTokens,
			TotalTokens:      oa.Usage.TotalTokens,
		}
	}
	return resp
}

// ChooseModel 根据请求和默认值选择模型。
func ChooseModel(req *llm.ChatRequest, defaultModel, fallbackModel string) string {
	if req != nil && req.Model != "" {
		return req.Model
	}
	if defaultModel != "" {
		return defaultModel
	}
	return fallbackModel
}

// BearerTokenHeaders 是标准的 Bearer token 认证 header 构建函数。
func BearerTokenHeaders(r *http.Request, apiKey string) {
	r.Header.Set("Authorization", "Bearer "+apiKey)
	r.Header.Set("Content-Type", "application/json")
}

// SafeCloseBody 安全关闭 HTTP 响应体并忽略错误。
func SafeCloseBody(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
