// Package metaexpert provides a top-level convenience entry point for
// embedding the research assistant with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/metaexpert"
//
//	a, err := metaexpert.New(metaexpert.WithOpenAI("gpt-4o"))
//	a, err := metaexpert.New(metaexpert.WithDeepSeek("deepseek-chat"))
//	a, err := metaexpert.New(metaexpert.WithProvider(myProvider), metaexpert.WithModel("custom"))
//
// This is a thin wrapper around [quick.New]; both produce identical results.
// Use this package when you prefer the shorter import path.
package metaexpert

import (
	"github.com/BaSui01/metaexpert/quick"
)

// Option configures the assistant created by [New].
type Option = quick.Option

// Assistant bundles the conversational intake service with its in-process
// session store.
type Assistant = quick.Assistant

// New creates a ready-to-use [Assistant] with minimal configuration.
// At minimum, a provider must be specified via [WithOpenAI], [WithAnthropic],
// [WithDeepSeek], or [WithProvider].
func New(opts ...Option) (*Assistant, error) {
	return quick.New(opts...)
}

// Re-export provider shortcuts so callers never need to import quick/.

// WithProvider sets a pre-built LLM provider.
var WithProvider = quick.WithProvider

// WithOpenAI creates an OpenAI provider. API key from OPENAI_API_KEY env.
var WithOpenAI = quick.WithOpenAI

// WithAnthropic creates an Anthropic Claude provider. API key from ANTHROPIC_API_KEY env.
var WithAnthropic = quick.WithAnthropic

// WithDeepSeek creates a DeepSeek provider. API key from DEEPSEEK_API_KEY env.
var WithDeepSeek = quick.WithDeepSeek

// WithModel overrides the model name.
var WithModel = quick.WithModel

// WithSerperKey enables the Google web and shopping search agents.
var WithSerperKey = quick.WithSerperKey

// WithTavilyKey enables the Tavily search agent.
var WithTavilyKey = quick.WithTavilyKey

// WithSessionTTL sets how long idle sessions are kept.
var WithSessionTTL = quick.WithSessionTTL

// WithLogger sets a custom zap logger.
var WithLogger = quick.WithLogger

// WithAPIKey overrides the API key for provider shortcuts.
var WithAPIKey = quick.WithAPIKey
