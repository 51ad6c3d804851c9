package openai

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/llm/providers"
	"github.com/BaSui01/metaexpert/llm/providers/openaicompat"
)

// jsonInstruction 在请求 JSON 输出时追加到用户消息末尾。
const jsonInstruction = "\nYou must respond in JSON format."

// Config 配置 OpenAI Provider。
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	Timeout       time.Duration
}

// Provider 实现 OpenAI 聊天补全。
type Provider struct {
	*openaicompat.Provider
}

// New 创建 OpenAI Provider。
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	base := openaicompat.New(openaicompat.Config{
		ProviderName:       "openai",
		APIKey:             cfg.APIKey,
		BaseURL:            cfg.BaseURL,
		DefaultModel:       cfg.Model,
		FallbackModel:      cfg.FallbackModel,
		Timeout:            cfg.Timeout,
		SupportsJSONSchema: true,
		RequestHook:        requestHook,
	}, logger)
	return &Provider{Provider: base}
}

// requestHook 应用 OpenAI 方言：JSON 输出提示和 o1 系列的消息折叠。
func requestHook(req *llm.ChatRequest, body *providers.OpenAICompatRequest) {
	if req.ResponseFormat != nil {
		appendToLastUserMessage(body, jsonInstruction)
	}
	if isO1Model(body.Model) {
		collapseForO1(body)
	}
}

// isO1Model 识别 o1 推理系列模型。
func isO1Model(model string) bool {
	return strings.HasPrefix(model, "o1-") || model == "o1"
}

// collapseForO1 将全部消息折叠为单条 user 消息并移除 o1 不接受的参数。
// o1 系列不支持 system 角色、temperature 与 response_format。
func collapseForO1(body *providers.OpenAICompatRequest) {
	parts := make([]string, 0, len(body.Messages))
	for _, m := range body.Messages {
		parts = append(parts, m.Content)
	}
	body.Messages = []providers.OpenAICompatMessage{
		{Role: "user", Content: strings.Join(parts, " \n\n ")},
	}
	body.Temperature = nil
	body.TopP = 0
	body.ResponseFormat = nil
}

func appendToLastUserMessage(body *providers.OpenAICompatRequest, suffix string) {
	for i := len(body.Messages) - 1; i >= 0; i-- {
		if body.Messages[i].Role == "user" {
			body.Messages[i].Content += suffix
			return
		}
	}
}
