package agents

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/metaexpert/tools/serper"
)

func TestSerperShoppingAgentFullFlow(t *testing.T) {
	server, seen := newSerperStub(t, map[string][]map[string]any{
		"razor blades": {{
			"title":       "Feather Hi-Stainless",
			"source":      "ShaveShop",
			"price":       "$9.99",
			"rating":      4.5,
			"ratingCount": 320,
			"delivery":    "Free delivery",
			"link":        "https://shop.example/feather",
		}},
	}, nil)

	client := serper.NewClient(serper.Config{APIKey: "k", BaseURL: server.URL}, nil)
	provider := newFakeProvider(`{"queries": ["razor blades"], "location": "nl"}`)
	agent := NewSerperShopping(Config{}, provider, client, nil)

	assert.Equal(t, SerperShoppingAgentName, agent.Name())

	pad := NewWorkpad()
	pad.Append(MetaAgentName, metaDocument(SerperShoppingAgentName, "find razor blade offers"))
	require.NoError(t, agent.Invoke(context.Background(), pad))

	doc, ok := pad.Last(SerperShoppingAgentName)
	require.True(t, ok)
	assert.Contains(t, doc.Content, "Title: Feather Hi-Stainless")
	assert.Contains(t, doc.Content, "Source: ShaveShop")
	assert.Contains(t, doc.Content, "Price: $9.99")
	assert.Contains(t, doc.Content, "Rating: 4.5 (320 reviews)")
	assert.Contains(t, doc.Content, "Delivery: Free delivery")
	assert.Contains(t, doc.Content, "---")

	gl, ok := seen.Load("razor blades")
	require.True(t, ok)
	assert.Equal(t, "nl", gl)
}

func TestSerperShoppingAgentPartialFailure(t *testing.T) {
	server, _ := newSerperStub(t, map[string][]map[string]any{
		"ok": {{"title": "Item", "source": "Store", "price": "$1", "link": "https://x.example"}},
	}, map[string]int{"down": http.StatusBadGateway})

	client := serper.NewClient(serper.Config{APIKey: "k", BaseURL: server.URL}, nil)
	provider := newFakeProvider(`{"queries": ["ok", "down"], "location": "us"}`)
	agent := NewSerperShopping(Config{}, provider, client, nil)

	pad := NewWorkpad()
	pad.Append(MetaAgentName, metaDocument(SerperShoppingAgentName, "go"))
	require.NoError(t, agent.Invoke(context.Background(), pad))

	doc, ok := pad.Last(SerperShoppingAgentName)
	require.True(t, ok)
	assert.Contains(t, doc.Content, "Title: Item")
	assert.Contains(t, doc.Content, "Error for query 'down': ")
}

func TestSerperShoppingAgentMissingQueries(t *testing.T) {
	client := serper.NewClient(serper.Config{APIKey: "k"}, nil)
	provider := newFakeProvider(`{"location": "us"}`)
	agent := NewSerperShopping(Config{}, provider, client, nil)

	pad := NewWorkpad()
	pad.Append(MetaAgentName, metaDocument(SerperShoppingAgentName, "go"))

	err := agent.Invoke(context.Background(), pad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search queries missing from the tool response")
}
