package agents

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/internal/ctxkeys"
	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/types"
)

// Agent 是工作流节点的统一接口。
type Agent interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, pad *Workpad) error
}

// Config 配置单个代理。
type Config struct {
	Name        string
	Description string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Base 提供代理的共享能力：身份、模型调用与 meta 指令读取。
type Base struct {
	cfg      Config
	provider llm.Provider
	logger   *zap.Logger
}

// NewBase 创建基础代理。
func NewBase(cfg Config, provider llm.Provider, logger *zap.Logger) *Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Base{
		cfg:      cfg,
		provider: provider,
		logger:   logger.With(zap.String("agent", cfg.Name)),
	}
}

// Name 返回代理名。
func (b *Base) Name() string { return b.cfg.Name }

// Description 返回能力描述。
func (b *Base) Description() string { return b.cfg.Description }

// Logger 返回代理日志器。
func (b *Base) Logger() *zap.Logger { return b.logger }

// ReadInstructions 从 workpad 读取 meta 代理的最新指令。
// 指令是 meta 输出 JSON 中的 step_4.final_draft；任何缺失或解析失败都返回空串。
func (b *Base) ReadInstructions(pad *Workpad) string {
	doc, ok := pad.Last(MetaAgentName)
	if !ok {
		b.logger.Debug("no meta agent output on workpad")
		return ""
	}

	decision, err := ParseDecision(doc.Content)
	if err != nil {
		b.logger.Warn("meta agent output is not valid JSON", zap.Error(err))
		return ""
	}
	return decision.FinalDraft
}

// completeJSON 以受限 JSON 模式调用模型并返回原始 JSON 文本。
func (b *Base) completeJSON(ctx context.Context, system, user string, schema map[string]any) (string, error) {
	req := &llm.ChatRequest{
		Model: b.cfg.Model,
		Messages: []types.Message{
			types.NewSystemMessage(system),
			types.NewUserMessage(user),
		},
		Temperature: b.cfg.Temperature,
		MaxTokens:   b.cfg.MaxTokens,
		ResponseFormat: &llm.ResponseFormat{
			Type:   llm.ResponseFormatJSONSchema,
			Strict: true,
			Schema: schema,
		},
	}
	// 运行标识优先，没有运行时退回会话标识。
	if id, ok := ctxkeys.RunID(ctx); ok {
		req.TraceID = id
	} else if id, ok := ctxkeys.TraceID(ctx); ok {
		req.TraceID = id
	}

	resp, err := b.provider.Completion(ctx, req)
	if err != nil {
		return "", err
	}
	return llm.FirstContent(resp)
}

// marshalSchema 序列化工具参数 schema，用于嵌入提示词。
func marshalSchema(schema map[string]any) string {
	encoded, err := json.Marshal(schema)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

// BuildRegistry 由团队构建注册表。meta 代理不注册。
func BuildRegistry(team ...Agent) *Registry {
	registry := NewRegistry()
	for _, member := range team {
		if member.Name() == MetaAgentName {
			continue
		}
		registry.Add(member.Name(), member.Description())
	}
	return registry
}
