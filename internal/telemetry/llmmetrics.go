package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/BaSui01/metaexpert/llm"
)

const instrumentationName = "github.com/BaSui01/metaexpert/llm"

// LLMMetrics 通过 OTel 指标上报模型调用情况，随 MeterProvider 的
// OTLP 导出器送往采集端。实现 llm.Observer，可与 Prometheus
// 收集器一起挂到 llm.MultiObserver 上。
type LLMMetrics struct {
	requestTotal    metric.Int64Counter
	errorTotal      metric.Int64Counter
	tokenTotal      metric.Int64Counter
	requestDuration metric.Float64Histogram
}

var _ llm.Observer = (*LLMMetrics)(nil)

// NewLLMMetrics 在全局 MeterProvider 上注册模型调用指标。
// 遥测未启用时全局 MeterProvider 是 noop，记录调用为空操作。
func NewLLMMetrics() (*LLMMetrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &LLMMetrics{}

	var err error
	m.requestTotal, err = meter.Int64Counter("llm.request.total",
		metric.WithDescription("Total number of LLM requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	m.errorTotal, err = meter.Int64Counter("llm.error.total",
		metric.WithDescription("Total number of failed LLM requests"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, err
	}

	m.tokenTotal, err = meter.Int64Counter("llm.token.total",
		metric.WithDescription("Total tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.requestDuration, err = meter.Float64Histogram("llm.request.duration",
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ObserveLLMRequest 实现 llm.Observer。
func (m *LLMMetrics) ObserveLLMRequest(provider, model string, duration time.Duration, err error) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
	)
	m.requestTotal.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.errorTotal.Add(ctx, 1, attrs)
	}
}

// ObserveLLMTokens 实现 llm.Observer。
func (m *LLMMetrics) ObserveLLMTokens(provider, model string, usage llm.ChatUsage) {
	ctx := context.Background()
	m.tokenTotal.Add(ctx, int64(usage.PromptTokens), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.String("type", "prompt")))
	m.tokenTotal.Add(ctx, int64(usage.CompletionTokens), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.String("type", "completion")))
}
