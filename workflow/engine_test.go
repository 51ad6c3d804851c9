package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/metaexpert/agents"
	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/testutil/fixtures"
	"github.com/BaSui01/metaexpert/testutil/mocks"
)

// stubAgent 是可注入行为的专家桩。
type stubAgent struct {
	name   string
	invoke func(ctx context.Context, pad *agents.Workpad) error
}

func (s *stubAgent) Name() string        { return s.name }
func (s *stubAgent) Description() string { return "stub agent" }

func (s *stubAgent) Invoke(ctx context.Context, pad *agents.Workpad) error {
	if s.invoke != nil {
		return s.invoke(ctx, pad)
	}
	pad.Append(s.name, "stub output")
	return nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestEngine(t *testing.T, provider llm.Provider, team []agents.Agent, emitter Emitter, maxNodes int) *Engine {
	t.Helper()

	registry := agents.BuildRegistry(team...)
	meta := agents.NewMeta(agents.Config{Model: "test-model"}, provider, registry, nil)

	engine, err := NewEngine(Config{
		Meta:     meta,
		Team:     team,
		MaxNodes: maxNodes,
		Emitter:  emitter,
	})
	require.NoError(t, err)
	return engine
}

func TestEngineRequiresMeta(t *testing.T) {
	_, err := NewEngine(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "meta agent is required")
}

func TestEngineHappyPath(t *testing.T) {
	provider := mocks.NewScriptedProvider(
		fixtures.MetaDecision("search_agent", "search for razor blades"),
		fixtures.MetaDecision(agents.ReporterAgentName, "Final report with sources."),
	)

	search := &stubAgent{name: "search_agent", invoke: func(_ context.Context, pad *agents.Workpad) error {
		pad.Append("search_agent", "search results")
		return nil
	}}
	reporter := agents.NewReporter(agents.Config{}, nil)

	recorder := &eventRecorder{}
	engine := newTestEngine(t, provider, []agents.Agent{search, reporter}, recorder.record, 0)

	result, err := engine.Run(context.Background(), "find me the best razor")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "Final report with sources.", result.Report)
	// meta, search, meta, reporter
	assert.Equal(t, 4, result.NodeCount)

	require.Contains(t, result.Workpad, "search_agent")
	assert.Equal(t, "search results", result.Workpad["search_agent"][0].Content)
	require.Contains(t, result.Workpad, agents.ReporterAgentName)
	assert.Equal(t, "Final report with sources.", result.Workpad[agents.ReporterAgentName][0].Content)

	starts := recorder.ofType(EventNodeStart)
	require.Len(t, starts, 4)
	assert.Equal(t, agents.MetaAgentName, starts[0].Node)
	assert.Equal(t, "search_agent", starts[1].Node)
	assert.Equal(t, agents.MetaAgentName, starts[2].Node)
	assert.Equal(t, agents.ReporterAgentName, starts[3].Node)

	assert.Len(t, recorder.ofType(EventNodeComplete), 4)
	assert.Empty(t, recorder.ofType(EventNodeError))

	progress := recorder.ofType(EventStepProgress)
	require.Len(t, progress, 2)
	assert.Equal(t, "Meta Agent asked search_agent to: search for razor blades", progress[0].Message)
	assert.Equal(t, "Meta Agent asked reporter_agent to: Final report with sources.", progress[1].Message)
}

func TestEngineUnknownAgentEndsRun(t *testing.T) {
	provider := mocks.NewScriptedProvider(fixtures.MetaDecision("ghost_agent", "do the impossible"))
	reporter := agents.NewReporter(agents.Config{}, nil)

	engine := newTestEngine(t, provider, []agents.Agent{reporter}, nil, 0)

	result, err := engine.Run(context.Background(), "req")
	require.NoError(t, err)
	assert.Equal(t, 1, result.NodeCount)
	// 最后一条 meta 决策的 final_draft 仍作为报告返回
	assert.Equal(t, "do the impossible", result.Report)
}

func TestEngineMalformedDecisionEndsRun(t *testing.T) {
	provider := mocks.NewScriptedProvider("this is not json")
	engine := newTestEngine(t, provider, nil, nil, 0)

	result, err := engine.Run(context.Background(), "req")
	require.NoError(t, err)
	assert.Equal(t, 1, result.NodeCount)
	assert.Equal(t, agents.NoFinalDraftMessage, result.Report)
}

func TestEngineNoMetaOutputReport(t *testing.T) {
	provider := mocks.NewScriptedProvider()
	engine := newTestEngine(t, provider, nil, nil, 0)

	result, err := engine.Run(context.Background(), "req")
	require.Error(t, err)
	assert.Equal(t, agents.NoReporterResponseMessage, result.Report)
}

func TestEngineNodeLimit(t *testing.T) {
	// 脚本耗尽后重复最后一条：meta 一直指派同一专家，永不收敛
	provider := mocks.NewScriptedProvider(fixtures.MetaDecision("loop_agent", "again"))
	loop := &stubAgent{name: "loop_agent"}

	recorder := &eventRecorder{}
	engine := newTestEngine(t, provider, []agents.Agent{loop}, recorder.record, 0)

	result, err := engine.Run(context.Background(), "req")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded 50 node executions")
	assert.Equal(t, DefaultMaxNodes, result.NodeCount)

	errEvents := recorder.ofType(EventNodeError)
	require.NotEmpty(t, errEvents)
	assert.Contains(t, errEvents[len(errEvents)-1].Err.Error(), "exceeded 50 node executions")
}

func TestEngineCustomNodeLimit(t *testing.T) {
	provider := mocks.NewScriptedProvider(fixtures.MetaDecision("loop_agent", "again"))
	loop := &stubAgent{name: "loop_agent"}
	engine := newTestEngine(t, provider, []agents.Agent{loop}, nil, 5)

	result, err := engine.Run(context.Background(), "req")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded 5 node executions")
	assert.Equal(t, 5, result.NodeCount)
}

func TestEngineSpecialistFailure(t *testing.T) {
	provider := mocks.NewScriptedProvider(fixtures.MetaDecision("broken_agent", "try this"))
	broken := &stubAgent{name: "broken_agent", invoke: func(context.Context, *agents.Workpad) error {
		return errors.New("tool blew up")
	}}

	recorder := &eventRecorder{}
	engine := newTestEngine(t, provider, []agents.Agent{broken}, recorder.record, 0)

	result, err := engine.Run(context.Background(), "req")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node broken_agent")
	assert.Contains(t, err.Error(), "tool blew up")
	assert.Equal(t, 2, result.NodeCount)

	errEvents := recorder.ofType(EventNodeError)
	require.Len(t, errEvents, 1)
	assert.Equal(t, "broken_agent", errEvents[0].Node)
}

func TestEngineProgressDeduplication(t *testing.T) {
	provider := mocks.NewScriptedProvider(
		fixtures.MetaDecision("echo_agent", "same instruction"),
		fixtures.MetaDecision("echo_agent", "same instruction"),
		fixtures.MetaDecision(agents.ReporterAgentName, "done"),
	)
	echo := &stubAgent{name: "echo_agent"}
	reporter := agents.NewReporter(agents.Config{}, nil)

	recorder := &eventRecorder{}
	engine := newTestEngine(t, provider, []agents.Agent{echo, reporter}, recorder.record, 0)

	_, err := engine.Run(context.Background(), "req")
	require.NoError(t, err)

	progress := recorder.ofType(EventStepProgress)
	require.Len(t, progress, 2)
	assert.Equal(t, "Meta Agent asked echo_agent to: same instruction", progress[0].Message)
	assert.Equal(t, "Meta Agent asked reporter_agent to: done", progress[1].Message)
}

func TestEngineProgressTruncation(t *testing.T) {
	long := strings.Repeat("x", 80)
	provider := mocks.NewScriptedProvider(fixtures.MetaDecision("ghost", long))
	recorder := &eventRecorder{}
	engine := newTestEngine(t, provider, nil, recorder.record, 0)

	_, err := engine.Run(context.Background(), "req")
	require.NoError(t, err)

	progress := recorder.ofType(EventStepProgress)
	require.Len(t, progress, 1)
	assert.Equal(t, "Meta Agent asked ghost to: "+strings.Repeat("x", 50), progress[0].Message)
}

func TestEngineContextCancellation(t *testing.T) {
	provider := mocks.NewScriptedProvider(fixtures.MetaDecision("loop_agent", "again"))
	loop := &stubAgent{name: "loop_agent"}
	engine := newTestEngine(t, provider, []agents.Agent{loop}, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Run(ctx, "req")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.NodeCount)
}

func TestEngineContextEmitterOverride(t *testing.T) {
	provider := mocks.NewScriptedProvider(fixtures.MetaDecision(agents.ReporterAgentName, "done"))
	reporter := agents.NewReporter(agents.Config{}, nil)

	configured := &eventRecorder{}
	override := &eventRecorder{}
	engine := newTestEngine(t, provider, []agents.Agent{reporter}, configured.record, 0)

	ctx := WithEmitter(context.Background(), override.record)
	_, err := engine.Run(ctx, "req")
	require.NoError(t, err)

	assert.Empty(t, configured.events)
	assert.NotEmpty(t, override.events)
}
