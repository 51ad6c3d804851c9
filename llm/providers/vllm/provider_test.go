package vllm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/llm/providers"
	"github.com/BaSui01/metaexpert/types"
)

func serveCapture(t *testing.T, captured *providers.OpenAICompatRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		resp := providers.OpenAICompatResponse{
			Model:   "Qwen/Qwen2.5-72B-Instruct",
			Choices: []providers.OpenAICompatChoice{{Message: providers.OpenAICompatMessage{Role: "assistant", Content: "{}"}}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGuidedJSONInjection(t *testing.T) {
	var captured providers.OpenAICompatRequest
	server := serveCapture(t, &captured)

	p := New(Config{Endpoint: server.URL, Model: "Qwen/Qwen2.5-72B-Instruct"}, zap.NewNop())

	schema := map[string]any{"type": "object", "additionalProperties": false}
	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []types.Message{
			types.NewSystemMessage("sys"),
			types.NewUserMessage("user"),
		},
		ResponseFormat: &llm.ResponseFormat{
			Type:   llm.ResponseFormatJSONSchema,
			Schema: schema,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "vllm", p.Name())
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
	assert.Equal(t, schema, captured.GuidedJSON)

	// 非 mistralai 模型保留原始消息结构。
	require.Len(t, captured.Messages, 2)
}

func TestMistralaiModelCollapse(t *testing.T) {
	var captured providers.OpenAICompatRequest
	server := serveCapture(t, &captured)

	p := New(Config{Endpoint: server.URL, Model: "mistralai/Mistral-7B-Instruct-v0.3"}, zap.NewNop())

	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []types.Message{
			types.NewSystemMessage("sys"),
			types.NewUserMessage("user"),
		},
	})
	require.NoError(t, err)

	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, "system:sys\n\n user:user", captured.Messages[0].Content)
}
