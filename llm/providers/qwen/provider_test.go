package qwen

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

func TestQwenUsesCompatibleModePath(t *testing.T) {
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/compatible-mode/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		resp := providers.OpenAICompatResponse{
			Model:   "qwen-plus",
			Choices: []providers.OpenAICompatChoice{{Message: providers.OpenAICompatMessage{Role: "assistant", Content: "好的"}}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	p := New(Config{APIKey: "dashscope-key", BaseURL: server.URL, Model: "qwen-plus"}, zap.NewNop())

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []types.Message{types.NewUserMessage("你好")},
	})
	require.NoError(t, err)

	assert.Equal(t, "qwen", p.Name())
	assert.Equal(t, "Bearer dashscope-key", gotAuth)
	assert.Equal(t, "好的", llm.FirstContent(resp))
}
