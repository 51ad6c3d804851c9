package agents

import (
	"encoding/json"
	"strings"
	"sync"
)

// Document 是写入 workpad 的单条工作记录。
type Document struct {
	Content string `json:"content"`
	Agent   string `json:"agent"`
}

// Workpad 是代理团队的共享工作区。
// 按代理名保存各自的输出历史，读写并发安全。
type Workpad struct {
	mu      sync.RWMutex
	entries map[string][]Document
	order   []string
}

// NewWorkpad 创建空的 workpad。
func NewWorkpad() *Workpad {
	return &Workpad{entries: make(map[string][]Document)}
}

// Register 为代理预留一个空的历史槽位。
// 注册顺序决定 Render 的输出顺序；重复注册不追加。
func (w *Workpad) Register(agent string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entries[agent]; ok {
		return
	}
	w.entries[agent] = []Document{}
	w.order = append(w.order, agent)
}

// Append 追加一条记录。未注册的代理会被隐式注册。
func (w *Workpad) Append(agent, content string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entries[agent]; !ok {
		w.order = append(w.order, agent)
	}
	w.entries[agent] = append(w.entries[agent], Document{Content: content, Agent: agent})
}

// Last 返回代理的最后一条记录。
func (w *Workpad) Last(agent string) (Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	docs := w.entries[agent]
	if len(docs) == 0 {
		return Document{}, false
	}
	return docs[len(docs)-1], true
}

// History 返回代理全部记录的副本。
func (w *Workpad) History(agent string) []Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	docs := w.entries[agent]
	out := make([]Document, len(docs))
	copy(out, docs)
	return out
}

// Len 返回全部记录条数。
func (w *Workpad) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n := 0
	for _, docs := range w.entries {
		n += len(docs)
	}
	return n
}

// Render 渲染 workpad 为提示词文本。
// 每个代理一行 `name: [contents…]`，按注册顺序；exclude 中的代理被跳过。
// 没有任何条目时返回 "No previous state."。
func (w *Workpad) Render(exclude ...string) string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	skip := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		skip[name] = struct{}{}
	}

	var lines []string
	for _, name := range w.order {
		if _, ok := skip[name]; ok {
			continue
		}
		contents := make([]string, 0, len(w.entries[name]))
		for _, doc := range w.entries[name] {
			contents = append(contents, doc.Content)
		}
		encoded, err := json.Marshal(contents)
		if err != nil {
			continue
		}
		lines = append(lines, name+": "+string(encoded))
	}

	if len(lines) == 0 {
		return "No previous state."
	}
	return strings.Join(lines, "\n")
}

// Snapshot 返回全部条目的深拷贝。
func (w *Workpad) Snapshot() map[string][]Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string][]Document, len(w.entries))
	for name, docs := range w.entries {
		cp := make([]Document, len(docs))
		copy(cp, docs)
		out[name] = cp
	}
	return out
}
