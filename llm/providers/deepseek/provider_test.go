package deepseek

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

func TestDeepSeekUsesUnprefixedEndpoint(t *testing.T) {
	var captured providers.OpenAICompatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		resp := providers.OpenAICompatResponse{
			Model:   "deepseek-chat",
			Choices: []providers.OpenAICompatChoice{{Message: providers.OpenAICompatMessage{Role: "assistant", Content: "hi"}}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	p := New(Config{APIKey: "key", BaseURL: server.URL}, zap.NewNop())

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []types.Message{types.NewUserMessage("hello")},
	})
	require.NoError(t, err)

	assert.Equal(t, "deepseek", p.Name())
	// 未指定模型时退到 deepseek-chat
	assert.Equal(t, "deepseek-chat", captured.Model)
	assert.Equal(t, "hi", llm.FirstContent(resp))
}
