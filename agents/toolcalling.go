package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/llm"
)

// ToolSpec 定义工具调用代理的参数结构与执行逻辑。
// Schema 是交给模型的受限 JSON 参数模式，Execute 拿解析后的参数换取结果文本。
type ToolSpec struct {
	Schema  func() map[string]any
	Execute func(ctx context.Context, args map[string]any) (string, error)
}

// ToolCalling 是执行外部工具的专家代理。
// 每轮 Invoke：读取 meta 指令 → 模型产出受限 JSON 参数 → 执行工具 → 结果写回 workpad。
type ToolCalling struct {
	*Base
	spec ToolSpec
}

// NewToolCalling 创建工具调用代理。
func NewToolCalling(cfg Config, provider llm.Provider, spec ToolSpec, logger *zap.Logger) *ToolCalling {
	return &ToolCalling{
		Base: NewBase(cfg, provider, logger),
		spec: spec,
	}
}

// Invoke 执行一轮工具调用。没有 meta 指令时不做任何事。
func (t *ToolCalling) Invoke(ctx context.Context, pad *Workpad) error {
	instructions := t.ReadInstructions(pad)
	if instructions == "" {
		t.Logger().Info("no instructions on workpad, skipping")
		return nil
	}

	schema := t.spec.Schema()
	system := fmt.Sprintf("Take the following instructions and return the specified JSON: %s.", marshalSchema(schema))

	raw, err := t.completeJSON(ctx, system, instructions, schema)
	if err != nil {
		return fmt.Errorf("agent %s tool call: %w", t.Name(), err)
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return fmt.Errorf("agent %s: invalid JSON response from model: %w", t.Name(), err)
	}

	result, err := t.spec.Execute(ctx, args)
	if err != nil {
		return fmt.Errorf("agent %s execute tool: %w", t.Name(), err)
	}

	pad.Append(t.Name(), result)
	t.Logger().Info("wrote tool result to workpad", zap.Int("result_len", len(result)))
	return nil
}

// stringArg 提取字符串参数，缺失或类型不符时返回空串。
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// stringSliceArg 提取字符串数组参数。
func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
