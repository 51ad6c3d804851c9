package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/llm"
)

// 最终报告缺失时面向用户的占位文案。
const (
	NoFinalDraftMessage       = "No final draft available."
	NoReporterResponseMessage = "No response from ReporterAgent"
)

// metaInstructions 是 meta 代理的编排提示词。
const metaInstructions = `# Role

You are Meta Expert, an expert project manager. You orchestrate a team of specialist agents to fully satisfy the user requirements. You never execute tools yourself; you reason over the shared workpad and instruct exactly one agent per turn.

# Definitions

- **Type_1 work**: instructions you write for one specialist agent from the agent registry. Type_1 work tells that agent precisely what to do next, phrased so the agent can act on it directly with the inputs it expects.
- **Type_2 work**: the final, comprehensive answer to the user requirements, synthesized from the information accumulated on the workpad, including the relevant source links.

# How you work

1. Summarize what the workpad already contains and how it relates to the requirements.
2. Outline and then review your reasoning steps for closing the remaining gaps.
3. Decide whether the workpad holds enough verified information to produce Type_2 work.
4. While information is missing, produce Type_1 work: select exactly one agent from the agent registry and draft instructions for it. The Agent field must repeat the agent name exactly as it appears in the registry.
5. Once the requirements can be fully answered, produce Type_2 work and set the Agent field to reporter_agent so your final draft is delivered to the user verbatim.

# Rules

- Only instruct agents that appear in the agent registry.
- Instruct one agent per response.
- Do not repeat an instruction that already produced results on the workpad; refine it or move on.
- Prefer searching before scraping: obtain URLs first, then request page content when the summaries are not enough.
- Type_2 work must directly answer every requirement and cite the sources it draws on from the workpad.`

// MetaSchema 返回 meta 代理的受限 JSON 输出模式。
func MetaSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"step_1": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"workpad_summary": map[string]any{
						"type":        "string",
						"description": "Extractively summarize information you have in the workpad, including the relevant sources as they relate to the requirements.",
					},
					"reasoning_steps": map[string]any{
						"type":        "string",
						"description": "Based on the workpad summary and the agents available to you, outline your reasoning steps for solving the requirements.",
					},
					"work_completion": map[string]any{
						"type":        "string",
						"description": "Based on the workpad, determine if you have enough information to provide Type_2 work.",
					},
				},
				"required":             []string{"workpad_summary", "reasoning_steps", "work_completion"},
				"description":          "First set of actions",
				"additionalProperties": false,
			},
			"step_2": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"review": map[string]any{
						"type":        "string",
						"description": "Review your reasoning steps.",
					},
					"reasoning_steps_draft_2": map[string]any{
						"type":        "string",
						"description": "Provide another draft of your reasoning steps with any amendments from your review.",
					},
				},
				"required":             []string{"review", "reasoning_steps_draft_2"},
				"description":          "Second set of actions",
				"additionalProperties": false,
			},
			"Agent": map[string]any{
				"type":        "string",
				"description": "Carefully select the agent to instruct from the Agent Register; ensure you provide the agent name exactly as it appears on the register.",
			},
			"step_3": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"draft_instructions": map[string]any{
						"type":        "string",
						"description": "Provide draft Type_1 or Type_2 work based on the workpad; use the workpad summary and reasoning steps to inform your response.",
					},
					"review": map[string]any{
						"type":        "string",
						"description": "Review the draft.",
					},
				},
				"required":             []string{"draft_instructions", "review"},
				"description":          "Third set of actions",
				"additionalProperties": false,
			},
			"step_4": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"agent_alignment": map[string]any{
						"type":        "string",
						"description": "Check that your draft aligns with the agent's capabilities.",
					},
					"final_draft": map[string]any{
						"type":        "string",
						"description": "Provide a final draft of your Type_1 or Type_2 work.",
					},
				},
				"required":             []string{"agent_alignment", "final_draft"},
				"description":          "Final steps",
				"additionalProperties": false,
			},
		},
		"required":             []string{"step_1", "step_2", "Agent", "step_3", "step_4"},
		"additionalProperties": false,
	}
}

// Meta 是编排代理。
// 每轮读取 workpad 与用户需求，产出固定结构的决策 JSON 并写回 workpad。
type Meta struct {
	*Base
	registry *Registry
}

// NewMeta 创建 meta 代理。名字为空时使用 MetaAgentName。
func NewMeta(cfg Config, provider llm.Provider, registry *Registry, logger *zap.Logger) *Meta {
	if cfg.Name == "" {
		cfg.Name = MetaAgentName
	}
	return &Meta{
		Base:     NewBase(cfg, provider, logger),
		registry: registry,
	}
}

// Registry 返回该 meta 代理使用的注册表。
func (m *Meta) Registry() *Registry { return m.registry }

// Invoke 执行一轮编排决策。
// workpad 渲染时排除 meta 自己的历史，决策 JSON 原样写入 workpad。
func (m *Meta) Invoke(ctx context.Context, pad *Workpad, requirements string) error {
	schema := MetaSchema()

	system := fmt.Sprintf(
		"%s\n\n<agent_registry>\n%s\n</agent_registry>\n\n You must respond in the following JSON format: %s",
		metaInstructions, m.registry.Render(), marshalSchema(schema),
	)
	user := fmt.Sprintf(
		"<user_requirements>\n%s\n</user_requirements>\n<workpad>\n%s\n</workpad>",
		requirements, pad.Render(MetaAgentName),
	)

	raw, err := m.completeJSON(ctx, system, user, schema)
	if err != nil {
		return fmt.Errorf("meta agent completion: %w", err)
	}

	pad.Append(m.Name(), raw)
	m.Logger().Debug("meta decision recorded", zap.Int("response_len", len(raw)))
	return nil
}

// MetaDecision 是从 meta 输出中解析出的路由决策。
type MetaDecision struct {
	Agent      string
	FinalDraft string
}

// ParseDecision 解析 meta 输出 JSON 中的 Agent 与 step_4.final_draft。
func ParseDecision(raw string) (MetaDecision, error) {
	var payload struct {
		Agent string `json:"Agent"`
		Step4 struct {
			FinalDraft string `json:"final_draft"`
		} `json:"step_4"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return MetaDecision{}, fmt.Errorf("parse meta decision: %w", err)
	}
	return MetaDecision{Agent: payload.Agent, FinalDraft: payload.Step4.FinalDraft}, nil
}

// FinalReport 从 workpad 提取交付给用户的最终报告。
// meta 从未输出时返回 NoReporterResponseMessage；
// 最新输出缺少 step_4.final_draft 字段时返回 NoFinalDraftMessage。
func FinalReport(pad *Workpad) string {
	doc, ok := pad.Last(MetaAgentName)
	if !ok {
		return NoReporterResponseMessage
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(doc.Content), &payload); err != nil {
		return NoFinalDraftMessage
	}
	step4, ok := payload["step_4"].(map[string]any)
	if !ok {
		return NoFinalDraftMessage
	}
	draft, ok := step4["final_draft"].(string)
	if !ok {
		return NoFinalDraftMessage
	}
	return draft
}
