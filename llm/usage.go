package llm

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// UsageTally 聚合一段调用链上的 token 用量。
// 挂在 context 上后，ObservedProvider 会把每次补全的用量累加进来。
type UsageTally struct {
	mu               sync.Mutex
	promptTokens     int
	completionTokens int
	requests         int
}

// NewUsageTally 创建空的用量聚合器。
func NewUsageTally() *UsageTally {
	return &UsageTally{}
}

// Add 累加一次调用的用量。
func (t *UsageTally) Add(usage ChatUsage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.promptTokens += usage.PromptTokens
	t.completionTokens += usage.CompletionTokens
	t.requests++
}

// Snapshot 返回当前累计值。
func (t *UsageTally) Snapshot() (promptTokens, completionTokens, requests int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.promptTokens, t.completionTokens, t.requests
}

type usageTallyKey struct{}

// WithUsageTally 把用量聚合器挂到 context 上。
func WithUsageTally(ctx context.Context, tally *UsageTally) context.Context {
	if tally == nil {
		return ctx
	}
	return context.WithValue(ctx, usageTallyKey{}, tally)
}

// UsageTallyFromContext 取出 context 上的用量聚合器，没有时返回 nil。
func UsageTallyFromContext(ctx context.Context) *UsageTally {
	if ctx == nil {
		return nil
	}
	tally, _ := ctx.Value(usageTallyKey{}).(*UsageTally)
	return tally
}

// Observer 接收每次模型调用的观测数据。
type Observer interface {
	ObserveLLMRequest(provider, model string, duration time.Duration, err error)
	ObserveLLMTokens(provider, model string, usage ChatUsage)
}

// MultiObserver 把观测数据依次分发给多个 Observer，nil 项被跳过。
func MultiObserver(observers ...Observer) Observer {
	kept := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			kept = append(kept, o)
		}
	}
	return kept
}

type multiObserver []Observer

func (m multiObserver) ObserveLLMRequest(provider, model string, duration time.Duration, err error) {
	for _, o := range m {
		o.ObserveLLMRequest(provider, model, duration, err)
	}
}

func (m multiObserver) ObserveLLMTokens(provider, model string, usage ChatUsage) {
	for _, o := range m {
		o.ObserveLLMTokens(provider, model, usage)
	}
}

// ObservedProvider 为 Provider 附加用量观测。
// 每次补全都会上报 Observer，并累加 context 上的 UsageTally。
type ObservedProvider struct {
	provider Provider
	observer Observer
	logger   *zap.Logger
}

// NewObservedProvider 创建观测装饰器。observer 可以为 nil。
func NewObservedProvider(provider Provider, observer Observer, logger *zap.Logger) *ObservedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObservedProvider{
		provider: provider,
		observer: observer,
		logger:   logger,
	}
}

// Completion 执行补全并记录用量。
func (op *ObservedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	resp, err := op.provider.Completion(ctx, req)
	duration := time.Since(start)

	if op.observer != nil {
		op.observer.ObserveLLMRequest(op.provider.Name(), req.Model, duration, err)
	}
	if resp != nil {
		if op.observer != nil {
			op.observer.ObserveLLMTokens(op.provider.Name(), req.Model, resp.Usage)
		}
		if tally := UsageTallyFromContext(ctx); tally != nil {
			tally.Add(resp.Usage)
		}
	}

	op.logger.Debug("llm completion observed",
		zap.String("provider", op.provider.Name()),
		zap.String("model", req.Model),
		zap.String("trace_id", req.TraceID),
		zap.Duration("duration", duration),
		zap.Bool("failed", err != nil))
	return resp, err
}

// Stream 直通底层 Provider，终块上的用量同样计入观测。
func (op *ObservedProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	start := time.Now()
	upstream, err := op.provider.Stream(ctx, req)
	if op.observer != nil {
		op.observer.ObserveLLMRequest(op.provider.Name(), req.Model, time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		for chunk := range upstream {
			if chunk.Usage != nil {
				if op.observer != nil {
					op.observer.ObserveLLMTokens(op.provider.Name(), req.Model, *chunk.Usage)
				}
				if tally := UsageTallyFromContext(ctx); tally != nil {
					tally.Add(*chunk.Usage)
				}
			}
			out <- chunk
		}
	}()
	return out, nil
}

// HealthCheck 直通底层 Provider。
func (op *ObservedProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return op.provider.HealthCheck(ctx)
}

// Name 直通底层 Provider。
func (op *ObservedProvider) Name() string {
	return op.provider.Name()
}

// SupportsJSONSchema 直通底层 Provider。
func (op *ObservedProvider) SupportsJSONSchema() bool {
	return op.provider.SupportsJSONSchema()
}
