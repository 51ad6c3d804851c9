package api

// =============================================================================
// WebSocket 帧类型
// =============================================================================

// 服务端推送的帧类型。
const (
	// FrameMessage 对话消息（含作者与正文）
	FrameMessage = "message"
	// FrameTask 单个研究任务的进度
	FrameTask = "task"
	// FrameTaskList 任务列表整体状态
	FrameTaskList = "tasklist"
	// FrameError 错误提示
	FrameError = "error"
)

// 单个任务的状态。
const (
	TaskStatusRunning = "running"
	TaskStatusDone    = "done"
)

// 任务列表的整体状态，直接作为前端展示文案。
const (
	TaskListReady   = "Ready"
	TaskListRunning = "Running..."
	TaskListDone    = "Done"
)

// ClientFrame 客户端发来的帧。目前只有 message 一种类型。
type ClientFrame struct {
	// 帧类型（message）
	Type string `json:"type"`
	// 用户输入的文本
	Content string `json:"content"`
}

// ServerFrame 服务端推送的帧。字段按帧类型选用：
// message 使用 Author/Content，task 使用 Title/Status，
// tasklist 使用 Status，error 使用 Content。
type ServerFrame struct {
	// 帧类型
	Type string `json:"type"`
	// 消息作者（message 帧）
	Author string `json:"author,omitempty"`
	// 消息或错误正文（message/error 帧）
	Content string `json:"content,omitempty"`
	// 任务标题（task 帧）
	Title string `json:"title,omitempty"`
	// 任务或任务列表状态（task/tasklist 帧）
	Status string `json:"status,omitempty"`
}

// MessageFrame 构造对话消息帧。
func MessageFrame(author, content string) ServerFrame {
	return ServerFrame{Type: FrameMessage, Author: author, Content: content}
}

// TaskFrame 构造任务进度帧。
func TaskFrame(title, status string) ServerFrame {
	return ServerFrame{Type: FrameTask, Title: title, Status: status}
}

// TaskListFrame 构造任务列表状态帧。
func TaskListFrame(status string) ServerFrame {
	return ServerFrame{Type: FrameTaskList, Status: status}
}

// ErrorFrame 构造错误帧。
func ErrorFrame(content string) ServerFrame {
	return ServerFrame{Type: FrameError, Content: content}
}
