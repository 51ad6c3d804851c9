package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/agents"
)

// DefaultMaxNodes 是单次运行允许的节点执行总数上限。
const DefaultMaxNodes = 50

// progressDraftLimit 是进度文本中指令摘要的最大字符数。
const progressDraftLimit = 50

// Config 配置编排引擎。
type Config struct {
	Meta *agents.Meta
	Team []agents.Agent

	// MaxNodes 不大于 0 时使用 DefaultMaxNodes。
	MaxNodes int

	// Emitter 接收流式事件；context 上经 WithEmitter 挂载的回调优先。
	Emitter Emitter
	Logger  *zap.Logger
}

// Engine 在 meta 代理与专家团队之间执行路由回路。
// 引擎本身无状态，每次 Run 使用独立的 workpad，可并发调用。
type Engine struct {
	meta     *agents.Meta
	team     []agents.Agent
	members  map[string]agents.Agent
	maxNodes int
	emitter  Emitter
	logger   *zap.Logger
}

// Result 是单次运行的产出。
type Result struct {
	Report    string
	NodeCount int
	Workpad   map[string][]agents.Document
}

// NewEngine 创建编排引擎。
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Meta == nil {
		return nil, fmt.Errorf("workflow: meta agent is required")
	}
	if cfg.MaxNodes <= 0 {
		cfg.MaxNodes = DefaultMaxNodes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	members := make(map[string]agents.Agent, len(cfg.Team))
	for _, member := range cfg.Team {
		if member == nil {
			continue
		}
		members[member.Name()] = member
	}

	return &Engine{
		meta:     cfg.Meta,
		team:     cfg.Team,
		members:  members,
		maxNodes: cfg.MaxNodes,
		emitter:  cfg.Emitter,
		logger:   logger.With(zap.String("component", "workflow")),
	}, nil
}

// Run 执行一次完整的研究回路。
// 返回的 Result 始终非 nil；失败时仍携带已执行的节点数、当前报告与 workpad 快照。
func (e *Engine) Run(ctx context.Context, requirements string) (*Result, error) {
	pad := agents.NewWorkpad()
	pad.Register(agents.MetaAgentName)
	for _, member := range e.team {
		if member != nil {
			pad.Register(member.Name())
		}
	}

	result := &Result{}
	seenProgress := make(map[string]struct{})

	finish := func() *Result {
		result.Report = agents.FinalReport(pad)
		result.Workpad = pad.Snapshot()
		return result
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(), err
		}

		decision, err := e.runMeta(ctx, pad, requirements, result)
		if err != nil {
			return finish(), err
		}
		if decision == nil {
			return finish(), nil
		}

		e.emitProgress(ctx, seenProgress, decision.Agent, decision.FinalDraft)

		member, ok := e.members[decision.Agent]
		if !ok {
			e.logger.Warn("meta routed to unknown agent, ending run",
				zap.String("agent", decision.Agent))
			return finish(), nil
		}

		if err := e.runNode(ctx, member, pad, result); err != nil {
			return finish(), err
		}

		if _, done := member.(*agents.Reporter); done {
			if doc, ok := pad.Last(member.Name()); ok {
				e.emitProgress(ctx, seenProgress, member.Name(), doc.Content)
			}
			return finish(), nil
		}
	}
}

// runMeta 执行一轮 meta 决策并解析路由目标。
// 决策解析失败返回 (nil, nil)，表示回路正常终止。
func (e *Engine) runMeta(ctx context.Context, pad *agents.Workpad, requirements string, result *Result) (*agents.MetaDecision, error) {
	if err := e.beginNode(ctx, result, agents.MetaAgentName); err != nil {
		return nil, err
	}
	e.emit(ctx, Event{Type: EventNodeStart, Node: agents.MetaAgentName})

	if err := e.meta.Invoke(ctx, pad, requirements); err != nil {
		e.emit(ctx, Event{Type: EventNodeError, Node: agents.MetaAgentName, Err: err})
		return nil, err
	}
	e.emit(ctx, Event{Type: EventNodeComplete, Node: agents.MetaAgentName})

	doc, ok := pad.Last(agents.MetaAgentName)
	if !ok {
		return nil, nil
	}
	decision, err := agents.ParseDecision(doc.Content)
	if err != nil {
		e.logger.Warn("meta decision is not parseable, ending run", zap.Error(err))
		return nil, nil
	}
	return &decision, nil
}

// runNode 执行一个专家节点。
func (e *Engine) runNode(ctx context.Context, member agents.Agent, pad *agents.Workpad, result *Result) error {
	if err := e.beginNode(ctx, result, member.Name()); err != nil {
		return err
	}
	e.emit(ctx, Event{Type: EventNodeStart, Node: member.Name()})

	if err := member.Invoke(ctx, pad); err != nil {
		wrapped := fmt.Errorf("node %s: %w", member.Name(), err)
		e.emit(ctx, Event{Type: EventNodeError, Node: member.Name(), Err: wrapped})
		return wrapped
	}
	e.emit(ctx, Event{Type: EventNodeComplete, Node: member.Name()})
	return nil
}

// beginNode 在执行前记账并检查节点上限。
func (e *Engine) beginNode(ctx context.Context, result *Result, node string) error {
	if result.NodeCount >= e.maxNodes {
		err := fmt.Errorf("workflow exceeded %d node executions", e.maxNodes)
		e.emit(ctx, Event{Type: EventNodeError, Node: node, Err: err})
		return err
	}
	result.NodeCount++
	return nil
}

func (e *Engine) emit(ctx context.Context, event Event) {
	if emit, ok := emitterFromContext(ctx); ok {
		emit(event)
		return
	}
	if e.emitter != nil {
		e.emitter(event)
	}
}

// emitProgress 发出去重后的进度事件。重复文本只播报一次。
func (e *Engine) emitProgress(ctx context.Context, seen map[string]struct{}, agent, message string) {
	text := fmt.Sprintf("Meta Agent asked %s to: %s", agent, truncateRunes(message, progressDraftLimit))
	if _, dup := seen[text]; dup {
		return
	}
	seen[text] = struct{}{}
	e.emit(ctx, Event{Type: EventStepProgress, Node: agent, Message: text})
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
