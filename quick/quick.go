// =============================================================================
// Package quick — One-Line Assistant Construction
// =============================================================================
// Provides a convenience entry point for embedding the research assistant in
// another Go program with minimal boilerplate. Delegates to llm/factory,
// agents, workflow and intake internally; sessions live in process memory.
//
// Usage:
//
//	import "github.com/BaSui01/metaexpert/quick"
//
//	a, err := quick.New(quick.WithOpenAI("gpt-4o"))
//	a, err := quick.New(quick.WithDeepSeek("deepseek-chat"), quick.WithSerperKey(key))
//	a, err := quick.New(quick.WithProvider(myProvider), quick.WithModel("custom"))
//	defer a.Close()
//
//	intro, err := a.Start(ctx, "session-1")
//	err = a.HandleMessage(ctx, "session-1", "调研一下国产新能源车", sink)
//
// =============================================================================
package quick

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/agents"
	"github.com/BaSui01/metaexpert/intake"
	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/llm/factory"
	"github.com/BaSui01/metaexpert/tools/scraper"
	"github.com/BaSui01/metaexpert/tools/serper"
	"github.com/BaSui01/metaexpert/tools/tavily"
	"github.com/BaSui01/metaexpert/workflow"
)

// Assistant 捆绑会话服务与其进程内存储。Close 停止存储的过期清理协程。
type Assistant struct {
	*intake.Service

	store *intake.MemoryStore
}

// Close releases the background session janitor.
func (a *Assistant) Close() {
	a.store.Close()
}

// Option configures the assistant created by New.
type Option func(*options)

type options struct {
	model      string
	provider   llm.Provider
	logger     *zap.Logger
	serperKey  string
	tavilyKey  string
	sessionTTL time.Duration

	// Provider shortcut fields — used when provider is nil.
	providerName string
	apiKey       string
}

// WithProvider sets a pre-built LLM provider.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithOpenAI creates an OpenAI provider using the given model.
// API key is read from OPENAI_API_KEY environment variable.
func WithOpenAI(model string) Option {
	return func(o *options) {
		o.providerName = "openai"
		o.model = model
		if o.apiKey == "" {
			o.apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

// WithAnthropic creates an Anthropic Claude provider using the given model.
// API key is read from ANTHROPIC_API_KEY environment variable.
func WithAnthropic(model string) Option {
	return func(o *options) {
		o.providerName = "anthropic"
		o.model = model
		if o.apiKey == "" {
			o.apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
}

// WithDeepSeek creates a DeepSeek provider using the given model.
// API key is read from DEEPSEEK_API_KEY environment variable.
func WithDeepSeek(model string) Option {
	return func(o *options) {
		o.providerName = "deepseek"
		o.model = model
		if o.apiKey == "" {
			o.apiKey = os.Getenv("DEEPSEEK_API_KEY")
		}
	}
}

// WithModel sets the model name. Overrides the model chosen by a shortcut.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithAPIKey overrides the API key for provider shortcuts (WithOpenAI, etc.).
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithSerperKey enables the Google web and shopping search agents.
// Defaults to the SERPER_API_KEY environment variable.
func WithSerperKey(key string) Option {
	return func(o *options) { o.serperKey = key }
}

// WithTavilyKey enables the Tavily search agent.
// Defaults to the TAVILY_API_KEY environment variable.
func WithTavilyKey(key string) Option {
	return func(o *options) { o.tavilyKey = key }
}

// WithSessionTTL sets how long idle sessions are kept. Defaults to 2h.
func WithSessionTTL(ttl time.Duration) Option {
	return func(o *options) { o.sessionTTL = ttl }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a ready-to-use Assistant with minimal configuration.
// The scraper and reporter agents are always on the team; search agents
// join when their API keys are available.
func New(opts ...Option) (*Assistant, error) {
	o := &options{
		serperKey:  os.Getenv("SERPER_API_KEY"),
		tavilyKey:  os.Getenv("TAVILY_API_KEY"),
		sessionTTL: 2 * time.Hour,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	// Resolve provider.
	p := o.provider
	if p == nil {
		if o.providerName == "" {
			return nil, fmt.Errorf("provider is required: use WithProvider, WithOpenAI, or WithAnthropic")
		}
		if o.apiKey == "" {
			return nil, fmt.Errorf("API key is required for %s: set the environment variable or use WithAPIKey", o.providerName)
		}
		var err error
		p, err = factory.NewProviderFromConfig(o.providerName, factory.ProviderConfig{
			APIKey: o.apiKey,
			Model:  o.model,
		}, o.logger)
		if err != nil {
			return nil, fmt.Errorf("create %s provider: %w", o.providerName, err)
		}
	}
	if o.model == "" {
		return nil, fmt.Errorf("model is required: use WithModel or a provider shortcut")
	}

	agentCfg := agents.Config{Model: o.model, Temperature: 0.2, MaxTokens: 4096}
	team := []agents.Agent{
		agents.NewWebScraper(agentCfg, p, scraper.New(scraper.Config{}, o.logger), o.logger),
		agents.NewReporter(agents.Config{}, o.logger),
	}
	if o.serperKey != "" {
		client := serper.NewClient(serper.Config{
			APIKey:   o.serperKey,
			Cache:    serper.NewMemoryCache(),
			CacheTTL: time.Hour,
		}, o.logger)
		team = append(team,
			agents.NewSerperSearch(agentCfg, p, client, o.logger),
			agents.NewSerperShopping(agentCfg, p, client, o.logger),
		)
	}
	if o.tavilyKey != "" {
		client := tavily.NewClient(tavily.Config{APIKey: o.tavilyKey}, o.logger)
		team = append(team, agents.NewTavily(agentCfg, p, client, o.logger))
	}

	meta := agents.NewMeta(agentCfg, p, agents.BuildRegistry(team...), o.logger)
	engine, err := workflow.NewEngine(workflow.Config{
		Meta:   meta,
		Team:   team,
		Logger: o.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build workflow engine: %w", err)
	}

	store := intake.NewMemoryStore(o.sessionTTL)
	svc, err := intake.NewService(intake.Config{
		Provider:    p,
		Model:       o.model,
		Temperature: 0.7,
		Engine:      engine,
		Store:       store,
		Logger:      o.logger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build intake service: %w", err)
	}

	return &Assistant{Service: svc, store: store}, nil
}
