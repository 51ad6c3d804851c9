package mistral

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

func TestMistralJSONModeUsesJSONObject(t *testing.T) {
	var captured providers.OpenAICompatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		resp := providers.OpenAICompatResponse{
			Model:   "mistral-large-latest",
			Choices: []providers.OpenAICompatChoice{{Message: providers.OpenAICompatMessage{Role: "assistant", Content: "{}"}}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	p := New(Config{APIKey: "key", BaseURL: server.URL, Model: "mistral-large-latest"}, zap.NewNop())

	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []types.Message{
			types.NewSystemMessage("sys"),
			types.NewUserMessage("user"),
		},
		ResponseFormat: &llm.ResponseFormat{
			Type:   llm.ResponseFormatJSONSchema,
			Schema: map[string]any{"type": "object"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "mistral", p.Name())
	assert.False(t, p.SupportsJSONSchema())
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
	assert.Nil(t, captured.ResponseFormat.JSONSchema)
}
