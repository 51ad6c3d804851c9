package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/agents"
	"github.com/BaSui01/metaexpert/internal/ctxkeys"
	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/llm/tokenizer"
	"github.com/BaSui01/metaexpert/storage"
	"github.com/BaSui01/metaexpert/types"
	"github.com/BaSui01/metaexpert/workflow"
)

// 对话命令字面量。
const (
	// StartCommand 由服务在建连时代用户发送，触发开场白。
	StartCommand = "/start"
	// EndCommand 结束需求收集并启动研究工作流。
	EndCommand = "/end"
	// FeedbackCommand 前缀表示对上一份报告的修订意见。
	FeedbackCommand = "/feedback"
)

// DefaultContextBudget 是聊天提示词的默认 token 预算。
const DefaultContextBudget = 16000

// Outbound 是投递给用户的一条消息。
type Outbound struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// Sink 接收对外投递的消息，由传输层注入。
// 同一次 HandleMessage 内按顺序调用，无并发。
type Sink func(Outbound)

// Config 是对话服务的配置。
type Config struct {
	// Provider 是需求收集阶段使用的聊天模型提供商。
	Provider llm.Provider
	// Model 是聊天模型名。
	Model string
	// Temperature 是聊天补全的采样温度。
	Temperature float32
	// ContextBudget 是提示词 token 预算，非正数时用 DefaultContextBudget。
	ContextBudget int
	// Engine 是 /end 启动的研究工作流引擎。
	Engine *workflow.Engine
	// Store 是会话存储。
	Store SessionStore
	// Runs 持久化运行历史，可为 nil（不持久化）。
	Runs storage.RunStore
	// Logger 可为 nil。
	Logger *zap.Logger
	// Clock 可为 nil，测试时注入。
	Clock func() time.Time
	// ObserveRun 在每次运行结束后以最终状态（done/failed）回调，可为 nil。
	ObserveRun func(status string)
}

// Service 实现需求收集对话回路。
type Service struct {
	provider llm.Provider
	model    string
	temp     float32
	budget   int
	engine   *workflow.Engine
	store    SessionStore
	runs     storage.RunStore
	counter  tokenizer.Tokenizer
	logger   *zap.Logger
	clock    func() time.Time
	observe  func(status string)
}

// NewService 创建对话服务。
func NewService(cfg Config) (*Service, error) {
	if cfg.Provider == nil {
		return nil, errors.New("intake: chat provider is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("intake: chat model is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("intake: workflow engine is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("intake: session store is required")
	}
	budget := cfg.ContextBudget
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		provider: cfg.Provider,
		model:    cfg.Model,
		temp:     cfg.Temperature,
		budget:   budget,
		engine:   cfg.Engine,
		store:    cfg.Store,
		runs:     cfg.Runs,
		counter:  tokenizer.GetTokenizerOrEstimator(cfg.Model),
		logger:   logger.With(zap.String("component", "intake")),
		clock:    clock,
		observe:  cfg.ObserveRun,
	}, nil
}

// Start 创建会话并返回开场白。
// 系统提示词在此刻冻结并随会话保存；/start 与开场白都不进入历史。
func (s *Service) Start(ctx context.Context, sessionID string) (*Outbound, error) {
	if sessionID == "" {
		return nil, errors.New("intake: session id is required")
	}
	now := s.clock()
	sess := &Session{
		ID:           sessionID,
		SystemPrompt: SystemPrompt(now),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	resp, err := s.complete(ctx, []types.Message{
		types.NewSystemMessage(sess.SystemPrompt),
		types.NewUserMessage(StartCommand),
	})
	if err != nil {
		return nil, fmt.Errorf("intake: intro completion: %w", err)
	}
	intro, _ := llm.FirstContent(resp)

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("intake: save session: %w", err)
	}
	s.logger.Info("session started", zap.String("session_id", sessionID))
	return &Outbound{Author: AuthorChat, Content: intro}, nil
}

// HandleMessage 处理一条用户消息。
// 每条消息（命令也一样）都会入历史、交给聊天模型并把回复投递给 sink；
// text 为 /end 时再从回复中抽取需求并运行工作流。
func (s *Service) HandleMessage(ctx context.Context, sessionID, text string, sink Sink) error {
	if sink == nil {
		return errors.New("intake: sink is required")
	}
	sess, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return err
	}

	prev := s.previousReport(ctx, sess)
	if strings.HasPrefix(text, FeedbackCommand) && prev == "" {
		sink(Outbound{Author: AuthorSystem, Content: NoReportForFeedbackMessage})
		return nil
	}

	system := sess.SystemPrompt
	if prev != "" {
		system += "\n\nLast message from the agent:\n<prev_work>" + prev + "</prev_work>"
	}

	sess.History = append(sess.History, types.NewUserMessage(text))
	s.trimHistory(sess, system)

	messages := make([]types.Message, 0, len(sess.History)+1)
	messages = append(messages, types.NewSystemMessage(system))
	messages = append(messages, sess.History...)

	resp, err := s.complete(ctx, messages)
	if err != nil {
		return fmt.Errorf("intake: chat completion: %w", err)
	}
	reply, _ := llm.FirstContent(resp)
	sink(Outbound{Author: AuthorChat, Content: reply})

	sess.History = append(sess.History, types.NewAssistantMessage(reply))
	sess.UpdatedAt = s.clock()
	if err := s.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("intake: save session: %w", err)
	}

	if text == EndCommand {
		return s.launch(ctx, sess, reply, sink)
	}
	return nil
}

// launch 从 /end 的回复中抽取需求并运行研究工作流。
// 无论运行成败都会把报告投递给用户并落库。
func (s *Service) launch(ctx context.Context, sess *Session, reply string, sink Sink) error {
	requirements := ExtractRequirements(reply)
	if requirements == "" {
		s.logger.Warn("no fenced requirements in final reply",
			zap.String("session_id", sess.ID))
	}

	sink(Outbound{Author: AuthorSystem, Content: CoffeeBreakMessage})

	var run *storage.Run
	if s.runs != nil {
		run = &storage.Run{SessionID: sess.ID, Requirements: requirements}
		if err := s.runs.Create(ctx, run); err != nil {
			s.logger.Warn("persist run failed",
				zap.String("session_id", sess.ID), zap.Error(err))
			run = nil
		}
	}

	tally := llm.NewUsageTally()
	runCtx := llm.WithUsageTally(ctx, tally)
	if run != nil {
		runCtx = ctxkeys.WithRunID(runCtx, run.ID)
	}
	result, runErr := s.engine.Run(runCtx, requirements)
	if runErr != nil {
		s.logger.Error("workflow run failed",
			zap.String("session_id", sess.ID),
			zap.Int("nodes", result.NodeCount),
			zap.Error(runErr))
	}

	sink(Outbound{Author: AuthorReport, Content: result.Report})

	prev := result.Report
	if docs := result.Workpad[agents.ReporterAgentName]; len(docs) > 0 {
		prev = docs[len(docs)-1].Content
	}
	sess.PrevReport = prev
	sess.RunCount++
	sess.UpdatedAt = s.clock()
	if err := s.store.Save(ctx, sess); err != nil {
		s.logger.Warn("save session after run failed",
			zap.String("session_id", sess.ID), zap.Error(err))
	}

	status := storage.RunStatusDone
	if runErr != nil {
		status = storage.RunStatusFailed
	}
	if s.observe != nil {
		s.observe(string(status))
	}

	if run != nil {
		prompt, completion, _ := tally.Snapshot()
		update := storage.RunUpdate{
			Status:           status,
			Report:           result.Report,
			NodeCount:        result.NodeCount,
			PromptTokens:     prompt,
			CompletionTokens: completion,
		}
		if err := s.runs.Finish(ctx, run.ID, update); err != nil {
			s.logger.Warn("finish run failed",
				zap.String("run_id", run.ID), zap.Error(err))
		}
	}

	s.logger.Info("workflow run finished",
		zap.String("session_id", sess.ID),
		zap.Int("nodes", result.NodeCount),
		zap.Int("run_count", sess.RunCount),
		zap.Bool("failed", runErr != nil))
	return nil
}

// previousReport 返回注入 <prev_work> 的上一份报告。
// 会话内存态缺失时回退到运行历史里最近一次的报告。
func (s *Service) previousReport(ctx context.Context, sess *Session) string {
	if sess.PrevReport != "" {
		return sess.PrevReport
	}
	if s.runs == nil {
		return ""
	}
	run, err := s.runs.LatestBySession(ctx, sess.ID)
	if err != nil {
		if !errors.Is(err, storage.ErrRunNotFound) {
			s.logger.Warn("load latest run failed",
				zap.String("session_id", sess.ID), zap.Error(err))
		}
		return ""
	}
	return run.Report
}

// trimHistory 从最旧的消息开始丢弃，直到提示词总量回到预算内。
// 最新一条消息始终保留。
func (s *Service) trimHistory(sess *Session, system string) {
	dropped := 0
	for len(sess.History) > 1 && s.overBudget(sess.History, system) {
		sess.History = sess.History[1:]
		dropped++
	}
	if dropped > 0 {
		s.logger.Debug("conversation history trimmed",
			zap.String("session_id", sess.ID),
			zap.Int("dropped", dropped),
			zap.Int("kept", len(sess.History)))
	}
}

func (s *Service) overBudget(history []types.Message, system string) bool {
	msgs := make([]types.Message, 0, len(history)+1)
	msgs = append(msgs, types.NewSystemMessage(system))
	msgs = append(msgs, history...)
	total, err := s.counter.CountMessages(msgs)
	if err != nil {
		return false
	}
	return total > s.budget
}

func (s *Service) complete(ctx context.Context, messages []types.Message) (*llm.ChatResponse, error) {
	req := &llm.ChatRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: s.temp,
	}
	if id, ok := ctxkeys.TraceID(ctx); ok {
		req.TraceID = id
	}
	return s.provider.Completion(ctx, req)
}
