package intake

import (
	"time"

	"github.com/BaSui01/metaexpert/types"
)

// Session 保存一次需求收集对话的全部状态。
// 结构体可 JSON 序列化，以便存入 Redis。
type Session struct {
	// ID 是会话标识，由传输层生成。
	ID string `json:"id"`

	// SystemPrompt 是会话开始时冻结的系统提示词（含当时时间戳）。
	SystemPrompt string `json:"system_prompt"`

	// History 是用户与助手的往返消息，不含系统消息。
	History []types.Message `json:"history"`

	// PrevReport 是上一次工作流运行交付的报告，注入 <prev_work> 用。
	PrevReport string `json:"prev_report,omitempty"`

	// RunCount 是会话内已完成的工作流运行次数。
	RunCount int `json:"run_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
