package quick

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/metaexpert/agents"
	"github.com/BaSui01/metaexpert/intake"
	"github.com/BaSui01/metaexpert/testutil/fixtures"
	"github.com/BaSui01/metaexpert/testutil/mocks"
)

func clearSearchKeys(t *testing.T) {
	t.Helper()
	t.Setenv("SERPER_API_KEY", "")
	t.Setenv("TAVILY_API_KEY", "")
}

func TestNewRequiresProvider(t *testing.T) {
	clearSearchKeys(t)

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider is required")
}

func TestNewRequiresAPIKeyForShortcut(t *testing.T) {
	clearSearchKeys(t)
	t.Setenv("OPENAI_API_KEY", "")

	_, err := New(WithOpenAI("gpt-4o"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required for openai")
}

func TestNewRequiresModelWithCustomProvider(t *testing.T) {
	clearSearchKeys(t)

	_, err := New(WithProvider(mocks.NewScriptedProvider("hi")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model is required")
}

func TestNewShortcutBuildsProvider(t *testing.T) {
	clearSearchKeys(t)

	a, err := New(WithDeepSeek("deepseek-chat"), WithAPIKey("test-key"))
	require.NoError(t, err)
	a.Close()
}

func TestSearchKeysExtendTeam(t *testing.T) {
	clearSearchKeys(t)

	// 仅验证带检索密钥时装配不报错；团队成员由 meta 提示词间接体现。
	a, err := New(
		WithProvider(mocks.NewScriptedProvider("hi")),
		WithModel("test-model"),
		WithSerperKey("serper-key"),
		WithTavilyKey("tavily-key"),
	)
	require.NoError(t, err)
	a.Close()
}

func TestAssistantRunsSession(t *testing.T) {
	clearSearchKeys(t)

	endReply := "Great, submitting now.\n```python\nResearch goal: best espresso beans\n```"
	// 聊天与 meta 共用同一个 Provider，脚本按调用顺序排列：
	// 开场白 → /end 的确认回复 → meta 指派汇报代理。
	provider := mocks.NewScriptedProvider(
		"你好！想调研什么？",
		endReply,
		fixtures.MetaDecision(agents.ReporterAgentName, "Final report."),
	)

	a, err := New(
		WithProvider(provider),
		WithModel("test-model"),
		WithSessionTTL(time.Hour),
	)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	intro, err := a.Start(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "你好！想调研什么？", intro.Content)

	var mu sync.Mutex
	var got []intake.Outbound
	sink := func(out intake.Outbound) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, out)
	}

	require.NoError(t, a.HandleMessage(ctx, "sess-1", intake.EndCommand, sink))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, intake.AuthorReport, last.Author)
	assert.Equal(t, "Final report.", last.Content)
}
