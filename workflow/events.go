package workflow

import "context"

// EventType 标识工作流事件类别。
type EventType string

const (
	// EventNodeStart 在节点开始执行前发出。
	EventNodeStart EventType = "node_start"
	// EventNodeComplete 在节点成功完成后发出。
	EventNodeComplete EventType = "node_complete"
	// EventNodeError 在节点执行失败时发出。
	EventNodeError EventType = "node_error"
	// EventStepProgress 在 meta 做出新决策时发出，文本已去重。
	EventStepProgress EventType = "step_progress"
)

// Event 携带一次工作流执行事件。
type Event struct {
	Type    EventType `json:"type"`
	Node    string    `json:"node,omitempty"`
	Message string    `json:"message,omitempty"`
	Err     error     `json:"-"`
}

// Emitter 接收工作流事件的回调。
type Emitter func(Event)

type emitterKey struct{}

// WithEmitter 把事件回调挂到 context 上，优先于引擎配置中的回调。
func WithEmitter(ctx context.Context, emitter Emitter) context.Context {
	if emitter == nil {
		return ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, emitterKey{}, emitter)
}

// emitterFromContext 取出 context 上的事件回调。
func emitterFromContext(ctx context.Context) (Emitter, bool) {
	if ctx == nil {
		return nil, false
	}
	v := ctx.Value(emitterKey{})
	if v == nil {
		return nil, false
	}
	emit, ok := v.(Emitter)
	return emit, ok && emit != nil
}
