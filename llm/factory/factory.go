package factory

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/llm/providers/anthropic"
	"github.com/BaSui01/metaexpert/llm/providers/deepseek"
	"github.com/BaSui01/metaexpert/llm/providers/gemini"
	"github.com/BaSui01/metaexpert/llm/providers/groq"
	"github.com/BaSui01/metaexpert/llm/providers/kimi"
	"github.com/BaSui01/metaexpert/llm/providers/mistral"
	"github.com/BaSui01/metaexpert/llm/providers/ollama"
	"github.com/BaSui01/metaexpert/llm/providers/openai"
	"github.com/BaSui01/metaexpert/llm/providers/openaicompat"
	"github.com/BaSui01/metaexpert/llm/providers/qwen"
	"github.com/BaSui01/metaexpert/llm/providers/vllm"
)

// ProviderConfig is the generic configuration accepted by the factory.
// It uses a flat structure with an Extra map for provider-specific fields.
type ProviderConfig struct {
	APIKey        string         `json:"api_key" yaml:"api_key"`
	BaseURL       string         `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model         string         `json:"model,omitempty" yaml:"model,omitempty"`
	FallbackModel string         `json:"fallback_model,omitempty" yaml:"fallback_model,omitempty"`
	Timeout       time.Duration  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Extra         map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// NewProviderFromConfig creates a Provider instance based on the provider name
// and a generic ProviderConfig.
//
// Supported names: openai, anthropic, claude, mistral, groq, gemini,
// deepseek, qwen, kimi, ollama, vllm. Any other name with a base_url is
// treated as a generic OpenAI-compatible provider.
func NewProviderFromConfig(name string, cfg ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch name {
	case "openai":
		return openai.New(openai.Config{
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			Model:         cfg.Model,
			FallbackModel: cfg.FallbackModel,
			Timeout:       cfg.Timeout,
		}, logger), nil

	case "anthropic", "claude":
		ac := anthropic.Config{
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			Model:         cfg.Model,
			FallbackModel: cfg.FallbackModel,
			Timeout:       cfg.Timeout,
		}
		if cfg.Extra != nil {
			if v, ok := cfg.Extra["prompt_caching"].(bool); ok {
				ac.EnablePromptCaching = v
			}
			if v, ok := cfg.Extra["max_tokens"].(int); ok {
				ac.MaxTokens = v
			}
		}
		return anthropic.New(ac, logger), nil

	case "mistral":
		return mistral.New(mistral.Config{
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			Model:         cfg.Model,
			FallbackModel: cfg.FallbackModel,
			Timeout:       cfg.Timeout,
		}, logger), nil

	case "groq":
		return groq.New(groq.Config{
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			Model:         cfg.Model,
			FallbackModel: cfg.FallbackModel,
			Timeout:       cfg.Timeout,
		}, logger), nil

	case "gemini":
		return gemini.New(gemini.Config{
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			Model:         cfg.Model,
			FallbackModel: cfg.FallbackModel,
			Timeout:       cfg.Timeout,
		}, logger), nil

	case "deepseek":
		return deepseek.New(deepseek.Config{
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			Model:         cfg.Model,
			FallbackModel: cfg.FallbackModel,
			Timeout:       cfg.Timeout,
		}, logger), nil

	case "qwen":
		return qwen.New(qwen.Config{
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			Model:         cfg.Model,
			FallbackModel: cfg.FallbackModel,
			Timeout:       cfg.Timeout,
		}, logger), nil

	case "kimi", "moonshot":
		return kimi.New(kimi.Config{
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			Model:         cfg.Model,
			FallbackModel: cfg.FallbackModel,
			Timeout:       cfg.Timeout,
		}, logger), nil

	case "ollama":
		oc := ollama.Config{
			Host:    cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}
		if cfg.Extra != nil {
			if v, ok := cfg.Extra["host"].(string); ok && v != "" {
				oc.Host = v
			}
		}
		return ollama.New(oc, logger), nil

	case "vllm":
		vc := vllm.Config{
			Endpoint: cfg.BaseURL,
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
			Timeout:  cfg.Timeout,
		}
		if cfg.Extra != nil {
			if v, ok := cfg.Extra["endpoint"].(string); ok && v != "" {
				vc.Endpoint = v
			}
		}
		if vc.Endpoint == "" {
			return nil, fmt.Errorf("vllm provider requires an endpoint")
		}
		return vllm.New(vc, logger), nil

	default:
		// 通用 OpenAI 兼容提供商：任意名称 + base_url 即可接入
		// （Fireworks、OpenRouter、Together 等）。
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("unknown provider %q: built-in provider not found, and base_url is required for generic OpenAI-compatible provider", name)
		}
		return openaicompat.New(openaicompat.Config{
			ProviderName:  name,
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			DefaultModel:  cfg.Model,
			FallbackModel: cfg.FallbackModel,
			Timeout:       cfg.Timeout,
		}, logger), nil
	}
}
