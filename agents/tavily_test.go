package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/metaexpert/tools/tavily"
)

func TestTavilyAgentFullFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "latest go release", body.Query)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query": "latest go release", "results": [
			{"title": "Go 1.24 Release Notes", "url": "https://go.dev/doc/go1.24", "content": "Go 1.24 adds ..."}
		]}`))
	}))
	t.Cleanup(server.Close)

	client := tavily.NewClient(tavily.Config{APIKey: "k", BaseURL: server.URL}, nil)
	provider := newFakeProvider(`{"query": "latest go release"}`)
	agent := NewTavily(Config{}, provider, client, nil)

	assert.Equal(t, TavilyAgentName, agent.Name())

	pad := NewWorkpad()
	pad.Append(MetaAgentName, metaDocument(TavilyAgentName, "check the latest go release"))
	require.NoError(t, agent.Invoke(context.Background(), pad))

	doc, ok := pad.Last(TavilyAgentName)
	require.True(t, ok)

	var payload struct {
		Results []tavily.Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc.Content), &payload))
	require.Len(t, payload.Results, 1)
	assert.Equal(t, "Go 1.24 Release Notes", payload.Results[0].Title)
	assert.Equal(t, "https://go.dev/doc/go1.24", payload.Results[0].URL)
}

func TestTavilyAgentSearchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	client := tavily.NewClient(tavily.Config{APIKey: "bad", BaseURL: server.URL}, nil)
	provider := newFakeProvider(`{"query": "anything"}`)
	agent := NewTavily(Config{}, provider, client, nil)

	pad := NewWorkpad()
	pad.Append(MetaAgentName, metaDocument(TavilyAgentName, "go"))
	require.NoError(t, agent.Invoke(context.Background(), pad))

	doc, ok := pad.Last(TavilyAgentName)
	require.True(t, ok)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(doc.Content), &payload))
	assert.Equal(t, tavily.ErrInvalidAPIKey.Error(), payload["error"])
}

func TestTavilyAgentMissingQuery(t *testing.T) {
	client := tavily.NewClient(tavily.Config{APIKey: "k"}, nil)
	provider := newFakeProvider(`{}`)
	agent := NewTavily(Config{}, provider, client, nil)

	pad := NewWorkpad()
	pad.Append(MetaAgentName, metaDocument(TavilyAgentName, "go"))

	err := agent.Invoke(context.Background(), pad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search query is missing from the tool response")
}
