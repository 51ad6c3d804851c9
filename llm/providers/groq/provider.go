package groq

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/llm/providers"
	"github.com/BaSui01/metaexpert/llm/providers/openaicompat"
)

// Config 配置 Groq Provider。
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	Timeout       time.Duration
}

// Provider 实现 Groq 聊天补全。
type Provider struct {
	*openaicompat.Provider
}

// New 创建 Groq Provider。
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai"
	}
	base := openaicompat.New(openaicompat.Config{
		ProviderName:  "groq",
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: cfg.FallbackModel,
		Timeout:       cfg.Timeout,
		RequestHook:   collapseMessages,
	}, logger)
	return &Provider{Provider: base}
}

// collapseMessages 将全部消息折叠为单条 user 消息，
// 每段内容带原角色前缀。
func collapseMessages(_ *llm.ChatRequest, body *providers.OpenAICompatRequest) {
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
