package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BaSui01/metaexpert/llm"
)

// DefaultNamespace 是指标名的默认前缀。
const DefaultNamespace = "metaexpert"

// Collector 持有服务的全部 Prometheus 指标。
// 所有指标注册在私有 Registry 上，通过 Handler 暴露。
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	agentExecutionsTotal   *prometheus.CounterVec
	agentExecutionDuration *prometheus.HistogramVec
	toolCallsTotal         *prometheus.CounterVec

	sessionsActive prometheus.Gauge
	runsTotal      *prometheus.CounterVec

	searchCacheHits   *prometheus.CounterVec
	searchCacheMisses *prometheus.CounterVec
}

// Collector 可直接作为 LLM 观测器挂到 NewObservedProvider。
var _ llm.Observer = (*Collector)(nil)

// NewCollector 创建指标收集器，namespace 为空时使用 DefaultNamespace。
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		llmRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		}, []string{"provider", "model", "status"}),
		llmRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider", "model"}),
		llmTokensUsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of LLM tokens used",
		}, []string{"provider", "model", "type"}),

		agentExecutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_executions_total",
			Help:      "Total number of agent executions",
		}, []string{"agent", "status"}),
		agentExecutionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_execution_duration_seconds",
			Help:      "Agent execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"agent"}),
		toolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls made by workflow agents",
		}, []string{"tool", "status"}),

		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently connected chat sessions",
		}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of research runs by final status",
		}, []string{"status"}),

		searchCacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_hits_total",
			Help:      "Total number of search cache hits",
		}, []string{"cache"}),
		searchCacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_misses_total",
			Help:      "Total number of search cache misses",
		}, []string{"cache"}),
	}
}

// Registry 返回底层 Registry，供测试和自定义 Gatherer 使用。
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler 返回暴露本收集器全部指标的 HTTP 处理器。
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest 记录一次 HTTP 请求，状态码归类为 2xx/3xx/4xx/5xx。
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusBucket(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveLLMRequest 实现 llm.Observer。
func (c *Collector) ObserveLLMRequest(provider, model string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// ObserveLLMTokens 实现 llm.Observer。
func (c *Collector) ObserveLLMTokens(provider, model string, usage llm.ChatUsage) {
	if usage.PromptTokens > 0 {
		c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(usage.CompletionTokens))
	}
}

// RecordAgentExecution 记录一次工作流节点执行。
func (c *Collector) RecordAgentExecution(agent, status string, duration time.Duration) {
	c.agentExecutionsTotal.WithLabelValues(agent, status).Inc()
	c.agentExecutionDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// RecordToolCall 记录一次工具型节点的调用。
func (c *Collector) RecordToolCall(tool, status string) {
	c.toolCallsTotal.WithLabelValues(tool, status).Inc()
}

// SessionOpened 在聊天连接建立时调用。
func (c *Collector) SessionOpened() { c.sessionsActive.Inc() }

// SessionClosed 在聊天连接关闭时调用。
func (c *Collector) SessionClosed() { c.sessionsActive.Dec() }

// RecordRun 记录一次研究运行的最终状态（done/failed）。
func (c *Collector) RecordRun(status string) {
	c.runsTotal.WithLabelValues(status).Inc()
}

// RecordSearchCacheHit 记录一次检索缓存命中。
func (c *Collector) RecordSearchCacheHit(cache string) {
	c.searchCacheHits.WithLabelValues(cache).Inc()
}

// RecordSearchCacheMiss 记录一次检索缓存未命中。
func (c *Collector) RecordSearchCacheMiss(cache string) {
	c.searchCacheMisses.WithLabelValues(cache).Inc()
}

func statusBucket(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
