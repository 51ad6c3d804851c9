package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/api"
	"github.com/BaSui01/metaexpert/intake"
	"github.com/BaSui01/metaexpert/internal/ctxkeys"
	"github.com/BaSui01/metaexpert/internal/metrics"
	"github.com/BaSui01/metaexpert/workflow"
)

// =============================================================================
// 聊天 WebSocket Handler
// =============================================================================

// defaultWriteTimeout 限制单帧写入耗时，避免慢客户端拖住研究回路。
const defaultWriteTimeout = 10 * time.Second

// ChatHandler 聊天 WebSocket 处理器。
// 每个连接对应一个全新会话：建连即发送 tasklist Ready 与开场白，
// 之后读取用户 message 帧并把对话回复、任务进度推回前端。
type ChatHandler struct {
	svc            *intake.Service
	collector      *metrics.Collector
	logger         *zap.Logger
	originPatterns []string
	writeTimeout   time.Duration
}

// ChatConfig 是 ChatHandler 的配置。
type ChatConfig struct {
	// Service 是需求收集对话服务。
	Service *intake.Service
	// Collector 记录会话与工作流指标，可为 nil。
	Collector *metrics.Collector
	// Logger 可为 nil。
	Logger *zap.Logger
	// OriginPatterns 允许的跨源来源，空时仅允许同源。
	OriginPatterns []string
	// WriteTimeout 单帧写入超时，非正数时用默认值。
	WriteTimeout time.Duration
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(cfg ChatConfig) *ChatHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &ChatHandler{
		svc:            cfg.Service,
		collector:      cfg.Collector,
		logger:         logger.With(zap.String("component", "chat_ws")),
		originPatterns: cfg.OriginPatterns,
		writeTimeout:   timeout,
	}
}

// ServeHTTP 升级连接并驱动会话回路。
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	sessionID := uuid.NewString()
	logger := h.logger.With(zap.String("session_id", sessionID))

	if h.collector != nil {
		h.collector.SessionOpened()
		defer h.collector.SessionClosed()
	}

	// 会话 ID 同时作为链路标识，跟随模型请求一路下行。
	ctx := ctxkeys.WithTraceID(r.Context(), sessionID)
	ws := &wsConn{conn: conn, timeout: h.writeTimeout}

	if err := ws.send(ctx, api.TaskListFrame(api.TaskListReady)); err != nil {
		return
	}

	intro, err := h.svc.Start(ctx, sessionID)
	if err != nil {
		logger.Error("session start failed", zap.Error(err))
		_ = ws.send(ctx, api.ErrorFrame("failed to start session"))
		conn.Close(websocket.StatusInternalError, "session start failed")
		return
	}
	if err := ws.send(ctx, api.MessageFrame(intro.Author, intro.Content)); err != nil {
		return
	}
	logger.Info("websocket session opened")

	for {
		var frame api.ClientFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			switch status := websocket.CloseStatus(err); {
			case status == websocket.StatusNormalClosure,
				status == websocket.StatusGoingAway,
				errors.Is(err, context.Canceled):
				logger.Info("websocket session closed")
			default:
				logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		if frame.Type != api.FrameMessage {
			_ = ws.send(ctx, api.ErrorFrame("unsupported frame type: "+frame.Type))
			continue
		}
		if frame.Content == "" {
			_ = ws.send(ctx, api.ErrorFrame("message content is empty"))
			continue
		}

		h.handleMessage(ctx, ws, sessionID, frame.Content, logger)
	}
}

// handleMessage 处理一条用户消息。/end 触发研究运行时，
// 任务列表状态在运行前后分别切到 Running... 与 Done。
func (h *ChatHandler) handleMessage(ctx context.Context, ws *wsConn, sessionID, text string, logger *zap.Logger) {
	launching := text == intake.EndCommand
	if launching {
		_ = ws.send(ctx, api.TaskListFrame(api.TaskListRunning))
	}

	runCtx := workflow.WithEmitter(ctx, h.composeEmitter(ctx, ws))
	sink := func(out intake.Outbound) {
		_ = ws.send(ctx, api.MessageFrame(out.Author, out.Content))
	}

	if err := h.svc.HandleMessage(runCtx, sessionID, text, sink); err != nil {
		logger.Error("message handling failed", zap.Error(err))
		_ = ws.send(ctx, api.ErrorFrame("message handling failed, please retry"))
		if launching {
			// 运行未能进行，任务列表回到待命态
			_ = ws.send(ctx, api.TaskListFrame(api.TaskListReady))
		}
		return
	}

	if launching {
		_ = ws.send(ctx, api.TaskListFrame(api.TaskListDone))
	}
}

// composeEmitter 把前端任务帧与指标采集合成一个工作流事件回调。
// 引擎在单个 goroutine 内顺序发事件，这里的局部状态无需加锁。
func (h *ChatHandler) composeEmitter(ctx context.Context, ws *wsConn) workflow.Emitter {
	var metricsEmitter workflow.Emitter
	if h.collector != nil {
		metricsEmitter = h.collector.NewWorkflowEmitter()
	}

	// step_progress 携带 Meta 的指令文本，作为随后节点的任务标题
	pendingTitle := ""
	titles := make(map[string]string)

	return func(ev workflow.Event) {
		if metricsEmitter != nil {
			metricsEmitter(ev)
		}

		switch ev.Type {
		case workflow.EventStepProgress:
			pendingTitle = ev.Message
		case workflow.EventNodeStart:
			title := ev.Node
			if pendingTitle != "" {
				title = pendingTitle
				pendingTitle = ""
			}
			titles[ev.Node] = title
			_ = ws.send(ctx, api.TaskFrame(title, api.TaskStatusRunning))
		case workflow.EventNodeComplete, workflow.EventNodeError:
			title, ok := titles[ev.Node]
			if !ok {
				title = ev.Node
			}
			delete(titles, ev.Node)
			_ = ws.send(ctx, api.TaskFrame(title, api.TaskStatusDone))
		}
	}
}

// =============================================================================
// 写入串行化
// =============================================================================

// wsConn 用互斥锁串行化并发写。工作流事件与对话回复可能交错到达。
type wsConn struct {
	conn    *websocket.Conn
	timeout time.Duration
	mu      sync.Mutex
}

func (c *wsConn) send(ctx context.Context, frame api.ServerFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	wctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return wsjson.Write(wctx, c.conn, frame)
}
