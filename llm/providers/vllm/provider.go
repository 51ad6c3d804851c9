package vllm

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/llm/providers"
	"github.com/BaSui01/metaexpert/llm/providers/openaicompat"
)

// Config 配置 vLLM Provider。
type Config struct {
	// Endpoint 是 vLLM 服务地址，如 "http://vllm.internal:8000"。
	Endpoint string

	// APIKey 可选，部署启用 --api-key 时使用。
	APIKey string

	Model   string
	Timeout time.Duration
}

// Provider 实现 vLLM 聊天补全。
type Provider struct {
	*openaicompat.Provider
}

// New 创建 vLLM Provider。
func New(cfg Config, logger *zap.Logger) *Provider {
	base := openaicompat.New(openaicompat.Config{
		ProviderName: "vllm",
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.Endpoint,
		DefaultModel: cfg.Model,
		Timeout:      cfg.Timeout,
		RequestHook:  requestHook,
	}, logger)
	return &Provider{Provider: base}
}

// requestHook 应用 vLLM 方言：guided_json 约束解码与
// mistralai 模型的消息折叠。
func requestHook(req *llm.ChatRequest, body *providers.OpenAICompatRequest) {
	if req.ResponseFormat != nil && req.ResponseFormat.Schema != nil {
		body.GuidedJSON = req.ResponseFormat.Schema
	}
	if strings.HasPrefix(body.Model, "mistralai/") {
		collapseMessages(body)
	}
}

// collapseMessages 将全部消息折叠为单条带角色前缀的 user 消息。
func collapseMessages(body *providers.OpenAICompatRequest) {
	if len(body.Messages) <= 1 {
		return
	}
	parts := make([]string, 0, len(body.Messages))
	for _, m := range body.Messages {
		parts = append(parts, m.Role+":"+m.Content)
	}
	body.Messages = []providers.OpenAICompatMessage{
		{Role: "user", Content: strings.Join(parts, "\n\n ")},
	}
}
