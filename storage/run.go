package storage

import (
	"context"
	"errors"
	"time"
)

// RunStatus 表示一次研究运行的生命周期状态。
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusDone    RunStatus = "done"
	RunStatusFailed  RunStatus = "failed"
)

// ErrRunNotFound 在目标运行不存在时返回。
var ErrRunNotFound = errors.New("run not found")

// Run 是一次研究运行的持久化记录。
type Run struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID        string    `gorm:"size:64;not null;index:idx_runs_session" json:"session_id"`
	Requirements     string    `gorm:"type:text" json:"requirements"`
	Feedback         string    `gorm:"type:text" json:"feedback,omitempty"`
	Report           string    `gorm:"type:text" json:"report"`
	Status           RunStatus `gorm:"size:16;not null;default:running" json:"status"`
	NodeCount        int       `gorm:"default:0" json:"node_count"`
	PromptTokens     int       `gorm:"default:0" json:"prompt_tokens"`
	CompletionTokens int       `gorm:"default:0" json:"completion_tokens"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName 固定表名，避免复数化差异。
func (Run) TableName() string { return "runs" }

// RunUpdate 描述运行结束时要落库的字段。
type RunUpdate struct {
	Status           RunStatus
	Report           string
	NodeCount        int
	PromptTokens     int
	CompletionTokens int
}

// RunStore 存取运行历史。
type RunStore interface {
	// Create 写入一条新运行记录，ID 为空时自动生成。
	Create(ctx context.Context, run *Run) error
	// Finish 以结束状态更新运行记录。
	Finish(ctx context.Context, id string, update RunUpdate) error
	// LatestBySession 返回会话最近一次运行。
	LatestBySession(ctx context.Context, sessionID string) (*Run, error)
	// ListBySession 按时间倒序返回会话的运行历史。
	ListBySession(ctx context.Context, sessionID string, limit int) ([]Run, error)
}
