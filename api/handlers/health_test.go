package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/metaexpert/llm"
)

// stubProvider 只实现健康检查，其余方法不会被调用。
type stubProvider struct {
	healthy bool
	err     error
}

func (p *stubProvider) Completion(context.Context, *llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, errors.New("stub: not implemented")
}

func (p *stubProvider) Stream(context.Context, *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	return nil, errors.New("stub: not implemented")
}

func (p *stubProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &llm.HealthStatus{Healthy: p.healthy}, nil
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) SupportsJSONSchema() bool { return false }

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthStatus {
	t.Helper()
	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	return status
}

func TestHandleHealthz(t *testing.T) {
	h := NewHealthHandler("1.2.3", zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.HandleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	status := decodeHealth(t, rec)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
}

func TestHandleHealthAllChecksPass(t *testing.T) {
	h := NewHealthHandler("dev", zaptest.NewLogger(t))
	h.RegisterCheck(NewPingCheck("database", func(context.Context) error { return nil }))
	h.RegisterCheck(NewPingCheck("redis", func(context.Context) error { return nil }))

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	status := decodeHealth(t, rec)
	assert.Equal(t, "healthy", status.Status)
	require.Len(t, status.Checks, 2)
	assert.Equal(t, "pass", status.Checks["database"].Status)
	assert.Equal(t, "pass", status.Checks["redis"].Status)
	assert.NotEmpty(t, status.Checks["database"].Latency)
}

func TestHandleHealthFailingCheck(t *testing.T) {
	h := NewHealthHandler("dev", zaptest.NewLogger(t))
	h.RegisterCheck(NewPingCheck("database", func(context.Context) error { return nil }))
	h.RegisterCheck(NewPingCheck("redis", func(context.Context) error {
		return errors.New("connection refused")
	}))

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	status := decodeHealth(t, rec)
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "pass", status.Checks["database"].Status)
	assert.Equal(t, "fail", status.Checks["redis"].Status)
	assert.Contains(t, status.Checks["redis"].Message, "connection refused")
}

func TestHandleHealthNoChecks(t *testing.T) {
	h := NewHealthHandler("dev", zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeHealth(t, rec).Status)
}

func TestProviderCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		check := NewProviderCheck("llm", &stubProvider{healthy: true})
		assert.Equal(t, "llm", check.Name())
		assert.NoError(t, check.Check(context.Background()))
	})

	t.Run("unhealthy", func(t *testing.T) {
		check := NewProviderCheck("llm", &stubProvider{healthy: false})
		err := check.Check(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unhealthy")
	})

	t.Run("error propagated", func(t *testing.T) {
		check := NewProviderCheck("llm", &stubProvider{err: errors.New("timeout")})
		err := check.Check(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")
	})
}
