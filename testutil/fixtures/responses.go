// =============================================================================
// 📦 测试数据工厂 - Meta 决策测试数据
// =============================================================================
// 提供预定义的 meta 代理五步决策 JSON，用于工作流与会话测试
// =============================================================================
package fixtures

import "fmt"

// MetaDecision 返回一份指派给 agent 的 meta 五步决策 JSON。
// finalDraft 作为 step_4 的最终指令文本。
func MetaDecision(agent, finalDraft string) string {
	return fmt.Sprintf(`{
		"step_1": {"workpad_summary": "s", "reasoning_steps": "r", "work_completion": "c"},
		"step_2": {"review": "ok", "reasoning_steps_draft_2": "r2"},
		"Agent": %q,
		"step_3": {"draft_instructions": "d", "review": "ok"},
		"step_4": {"agent_alignment": "aligned", "final_draft": %q}
	}`, agent, finalDraft)
}
