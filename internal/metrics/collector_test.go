package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/metaexpert/agents"
	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/tools/serper"
	"github.com/BaSui01/metaexpert/workflow"
)

func TestStatusBucket(t *testing.T) {
	cases := []struct {
		code int
		want string
	}{
		{200, "2xx"},
		{204, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{500, "5xx"},
		{599, "5xx"},
		{42, "unknown"},
		{604, "unknown"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusBucket(tc.code), "code %d", tc.code)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	c := NewCollector("")

	c.RecordHTTPRequest("GET", "/healthz", 200, 5*time.Millisecond)
	c.RecordHTTPRequest("GET", "/healthz", 204, time.Millisecond)
	c.RecordHTTPRequest("POST", "/api/runs", 502, time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/healthz", "2xx")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("POST", "/api/runs", "5xx")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.httpRequestDuration))
}

func TestObserveLLMRequest(t *testing.T) {
	c := NewCollector("")

	c.ObserveLLMRequest("openai", "gpt-4o", 120*time.Millisecond, nil)
	c.ObserveLLMRequest("openai", "gpt-4o", 80*time.Millisecond, errors.New("boom"))

	assert.Equal(t, float64(1), testutil.ToFloat64(c.llmRequestsTotal.WithLabelValues("openai", "gpt-4o", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.llmRequestsTotal.WithLabelValues("openai", "gpt-4o", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.llmRequestDuration))
}

func TestObserveLLMTokens(t *testing.T) {
	c := NewCollector("")

	c.ObserveLLMTokens("openai", "gpt-4o", llm.ChatUsage{PromptTokens: 120, CompletionTokens: 30, TotalTokens: 150})
	c.ObserveLLMTokens("openai", "gpt-4o", llm.ChatUsage{})

	assert.Equal(t, 2, testutil.CollectAndCount(c.llmTokensUsed))
	assert.Equal(t, float64(120), testutil.ToFloat64(c.llmTokensUsed.WithLabelValues("openai", "gpt-4o", "prompt")))
	assert.Equal(t, float64(30), testutil.ToFloat64(c.llmTokensUsed.WithLabelValues("openai", "gpt-4o", "completion")))
}

func TestSessionGauge(t *testing.T) {
	c := NewCollector("")

	c.SessionOpened()
	c.SessionOpened()
	c.SessionClosed()

	assert.Equal(t, float64(1), testutil.ToFloat64(c.sessionsActive))
}

func TestRecordRun(t *testing.T) {
	c := NewCollector("")

	c.RecordRun("done")
	c.RecordRun("failed")
	c.RecordRun("done")

	assert.Equal(t, float64(2), testutil.ToFloat64(c.runsTotal.WithLabelValues("done")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.runsTotal.WithLabelValues("failed")))
}

func TestWorkflowEmitterRecordsNodeMetrics(t *testing.T) {
	c := NewCollector("")
	emit := c.NewWorkflowEmitter()

	emit(workflow.Event{Type: workflow.EventNodeStart, Node: agents.SerperSearchAgentName})
	emit(workflow.Event{Type: workflow.EventNodeComplete, Node: agents.SerperSearchAgentName})
	emit(workflow.Event{Type: workflow.EventNodeStart, Node: agents.TavilyAgentName})
	emit(workflow.Event{Type: workflow.EventNodeError, Node: agents.TavilyAgentName, Err: errors.New("quota exceeded")})
	emit(workflow.Event{Type: workflow.EventNodeStart, Node: agents.ReporterAgentName})
	emit(workflow.Event{Type: workflow.EventNodeComplete, Node: agents.ReporterAgentName})
	emit(workflow.Event{Type: workflow.EventStepProgress, Message: "Searching the web"})

	assert.Equal(t, float64(1), testutil.ToFloat64(c.agentExecutionsTotal.WithLabelValues(agents.SerperSearchAgentName, "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.agentExecutionsTotal.WithLabelValues(agents.TavilyAgentName, "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.agentExecutionsTotal.WithLabelValues(agents.ReporterAgentName, "success")))

	// 编排节点不计入工具调用。
	assert.Equal(t, 2, testutil.CollectAndCount(c.toolCallsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.toolCallsTotal.WithLabelValues(agents.SerperSearchAgentName, "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.toolCallsTotal.WithLabelValues(agents.TavilyAgentName, "error")))
}

func TestWorkflowEmitterWithoutStartEvent(t *testing.T) {
	c := NewCollector("")
	emit := c.NewWorkflowEmitter()

	emit(workflow.Event{Type: workflow.EventNodeComplete, Node: agents.MetaAgentName})

	assert.Equal(t, float64(1), testutil.ToFloat64(c.agentExecutionsTotal.WithLabelValues(agents.MetaAgentName, "success")))
}

func TestWrapSearchCacheCountsHitsAndMisses(t *testing.T) {
	ctx := context.Background()
	c := NewCollector("")
	cache := c.WrapSearchCache("serper", serper.NewMemoryCache())

	var out string
	require.Error(t, cache.GetJSON(ctx, "espresso machines", &out))

	require.NoError(t, cache.SetJSON(ctx, "espresso machines", "cached result", time.Minute))
	require.NoError(t, cache.GetJSON(ctx, "espresso machines", &out))
	assert.Equal(t, "cached result", out)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.searchCacheHits.WithLabelValues("serper")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.searchCacheMisses.WithLabelValues("serper")))
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	c := NewCollector("custom")
	c.RecordRun("done")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "custom_runs_total")
	assert.Contains(t, body, "go_goroutines")
}
