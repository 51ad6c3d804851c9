package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/metaexpert/agents"
	"github.com/BaSui01/metaexpert/api"
	"github.com/BaSui01/metaexpert/intake"
	"github.com/BaSui01/metaexpert/internal/metrics"
	"github.com/BaSui01/metaexpert/testutil/fixtures"
	"github.com/BaSui01/metaexpert/testutil/mocks"
	"github.com/BaSui01/metaexpert/workflow"
)

// newChatServer 组装只含汇报代理的最小会话服务并挂到测试服务器上。
func newChatServer(t *testing.T, collector *metrics.Collector, chatResponses ...string) *httptest.Server {
	t.Helper()

	chat := mocks.NewScriptedProvider(chatResponses...)
	metaProv := mocks.NewScriptedProvider(
		fixtures.MetaDecision(agents.ReporterAgentName, "The research is complete."),
	)

	store := intake.NewMemoryStore(time.Hour)
	t.Cleanup(store.Close)

	reporter := agents.NewReporter(agents.Config{}, nil)
	team := []agents.Agent{reporter}
	meta := agents.NewMeta(agents.Config{Model: "test-model"}, metaProv, agents.BuildRegistry(team...), nil)

	engine, err := workflow.NewEngine(workflow.Config{Meta: meta, Team: team})
	require.NoError(t, err)

	svc, err := intake.NewService(intake.Config{
		Provider: chat,
		Model:    "test-model",
		Engine:   engine,
		Store:    store,
	})
	require.NoError(t, err)

	handler := NewChatHandler(ChatConfig{
		Service:   svc,
		Collector: collector,
		Logger:    zaptest.NewLogger(t),
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func dialChat(t *testing.T, ctx context.Context, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) api.ServerFrame {
	t.Helper()
	var frame api.ServerFrame
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	return frame
}

func sendMessage(t *testing.T, ctx context.Context, conn *websocket.Conn, text string) {
	t.Helper()
	require.NoError(t, wsjson.Write(ctx, conn, api.ClientFrame{Type: api.FrameMessage, Content: text}))
}

func TestChatConnectSendsReadyAndIntro(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := newChatServer(t, nil, "Hi! What would you like to research?")
	conn := dialChat(t, ctx, srv)

	ready := readFrame(t, ctx, conn)
	assert.Equal(t, api.TaskListFrame(api.TaskListReady), ready)

	intro := readFrame(t, ctx, conn)
	assert.Equal(t, api.FrameMessage, intro.Type)
	assert.Equal(t, intake.AuthorChat, intro.Author)
	assert.Equal(t, "Hi! What would you like to research?", intro.Content)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}

func TestChatConversationRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := newChatServer(t, nil,
		"Hi! What would you like to research?",
		"Got it. Anything else, or /end to launch?",
	)
	conn := dialChat(t, ctx, srv)

	readFrame(t, ctx, conn) // tasklist Ready
	readFrame(t, ctx, conn) // intro

	sendMessage(t, ctx, conn, "I want to compare Go web frameworks")

	reply := readFrame(t, ctx, conn)
	assert.Equal(t, api.FrameMessage, reply.Type)
	assert.Equal(t, intake.AuthorChat, reply.Author)
	assert.Equal(t, "Got it. Anything else, or /end to launch?", reply.Content)
}

func TestChatEndRunsWorkflowAndStreamsProgress(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	collector := metrics.NewCollector("chattest")
	srv := newChatServer(t, collector,
		"Hi! What would you like to research?",
		"Summary below.\n```python\nCompare Go web frameworks.\n```",
	)
	conn := dialChat(t, ctx, srv)

	readFrame(t, ctx, conn) // tasklist Ready
	readFrame(t, ctx, conn) // intro

	sendMessage(t, ctx, conn, intake.EndCommand)

	taskTitle := "Meta Agent asked " + agents.ReporterAgentName + " to: The research is complete."
	want := []api.ServerFrame{
		api.TaskListFrame(api.TaskListRunning),
		api.MessageFrame(intake.AuthorChat, "Summary below.\n```python\nCompare Go web frameworks.\n```"),
		api.MessageFrame(intake.AuthorSystem, intake.CoffeeBreakMessage),
		api.TaskFrame(agents.MetaAgentName, api.TaskStatusRunning),
		api.TaskFrame(agents.MetaAgentName, api.TaskStatusDone),
		api.TaskFrame(taskTitle, api.TaskStatusRunning),
		api.TaskFrame(taskTitle, api.TaskStatusDone),
		api.MessageFrame(intake.AuthorReport, "The research is complete."),
		api.TaskListFrame(api.TaskListDone),
	}
	for i, expected := range want {
		got := readFrame(t, ctx, conn)
		assert.Equal(t, expected, got, "frame %d", i)
	}

	// meta 与汇报代理各执行一次
	count, err := testutil.GatherAndCount(collector.Registry(), "chattest_agent_executions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestChatRejectsUnknownFrameType(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := newChatServer(t, nil, "Hi!")
	conn := dialChat(t, ctx, srv)

	readFrame(t, ctx, conn) // tasklist Ready
	readFrame(t, ctx, conn) // intro

	require.NoError(t, wsjson.Write(ctx, conn, api.ClientFrame{Type: "ping", Content: "x"}))

	frame := readFrame(t, ctx, conn)
	assert.Equal(t, api.FrameError, frame.Type)
	assert.Contains(t, frame.Content, "unsupported frame type")
}

func TestChatRejectsEmptyContent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := newChatServer(t, nil, "Hi!")
	conn := dialChat(t, ctx, srv)

	readFrame(t, ctx, conn) // tasklist Ready
	readFrame(t, ctx, conn) // intro

	require.NoError(t, wsjson.Write(ctx, conn, api.ClientFrame{Type: api.FrameMessage}))

	frame := readFrame(t, ctx, conn)
	assert.Equal(t, api.FrameError, frame.Type)
	assert.Contains(t, frame.Content, "empty")
}

func TestChatStartFailureClosesConnection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 无脚本回复，开场白补全直接失败
	srv := newChatServer(t, nil)
	conn := dialChat(t, ctx, srv)

	readFrame(t, ctx, conn) // tasklist Ready

	frame := readFrame(t, ctx, conn)
	assert.Equal(t, api.FrameError, frame.Type)
	assert.Contains(t, frame.Content, "failed to start session")

	var next api.ServerFrame
	err := wsjson.Read(ctx, conn, &next)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusInternalError, websocket.CloseStatus(err))
}
