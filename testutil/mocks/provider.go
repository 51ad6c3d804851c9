// ScriptedProvider 的 LLM 提供商测试模拟实现。
//
// 按脚本顺序返回回复并记录每次请求，支持脚本耗尽与故障注入场景。
package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/types"
)

// ScriptedProvider 依次返回脚本中的回复；脚本耗尽后重复最后一条。
// 空脚本（或调用 Exhaust 之后）的 Completion 返回错误，用于模拟上游故障。
type ScriptedProvider struct {
	mu        sync.Mutex
	responses []string
	calls     []*llm.ChatRequest
}

// NewScriptedProvider 创建按给定脚本应答的 Provider。
func NewScriptedProvider(responses ...string) *ScriptedProvider {
	return &ScriptedProvider{responses: responses}
}

func (p *ScriptedProvider) Completion(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, req)
	if len(p.responses) == 0 {
		return nil, errors.New("scripted provider: no responses")
	}
	idx := len(p.calls) - 1
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}

	return &llm.ChatResponse{
		Provider: "scripted",
		Model:    req.Model,
		Choices: []llm.ChatChoice{{
			Message:      types.NewAssistantMessage(p.responses[idx]),
			FinishReason: "stop",
		}},
		Usage: llm.ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (p *ScriptedProvider) Stream(context.Context, *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	return nil, errors.New("scripted provider: streaming not supported")
}

func (p *ScriptedProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (p *ScriptedProvider) Name() string { return "scripted" }

func (p *ScriptedProvider) SupportsJSONSchema() bool { return true }

// Exhaust 清空剩余脚本，使后续 Completion 返回错误。
func (p *ScriptedProvider) Exhaust() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = nil
}

// CallCount 返回已记录的请求数。
func (p *ScriptedProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// LastCall 返回最近一次请求，没有请求时返回 nil。
func (p *ScriptedProvider) LastCall() *llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return nil
	}
	return p.calls[len(p.calls)-1]
}
