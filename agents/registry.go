package agents

import (
	"strings"
	"sync"
)

// 团队中的固定角色名。路由与指令读取依赖这两个名字。
const (
	MetaAgentName     = "meta_agent"
	ReporterAgentName = "reporter_agent"
)

// Registry 是代理能力注册表。
// 每个专家代理以 `name: description` 的形式呈现给 meta 代理，
// meta 代理据此选择下一个执行者。meta 代理自身不注册。
type Registry struct {
	mu    sync.RWMutex
	names []string
	descs map[string]string
}

// NewRegistry 创建空注册表。
func NewRegistry() *Registry {
	return &Registry{descs: make(map[string]string)}
}

// Add 注册一个代理及其能力描述。重复注册覆盖描述并保持原有顺序。
func (r *Registry) Add(name, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.descs[name]; !ok {
		r.names = append(r.names, name)
	}
	if description == "" {
		description = "No description provided."
	}
	r.descs[name] = description
}

// Names 按注册顺序返回全部代理名。
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Description 返回指定代理的描述。
func (r *Registry) Description(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.descs[name]
	return desc, ok
}

// Render 渲染注册表为提示词文本，每个代理一行 `name: description`。
// 空注册表返回 "No previous agent registry."。
func (r *Registry) Render() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.names) == 0 {
		return "No previous agent registry."
	}

	lines := make([]string, 0, len(r.names))
	for _, name := range r.names {
		lines = append(lines, name+": "+r.descs[name])
	}
	return strings.Join(lines, "\n")
}
