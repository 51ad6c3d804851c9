package agents

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/metaexpert/llm"
	"github.com/BaSui01/metaexpert/types"
)

// fakeProvider 按脚本顺序返回固定回复，并记录收到的请求。
type fakeProvider struct {
	mu        sync.Mutex
	responses []string
	calls     []*llm.ChatRequest
	err       error
}

func newFakeProvider(responses ...string) *fakeProvider {
	return &fakeProvider{responses: responses}
}

func (f *fakeProvider) Completion(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("fake provider: no scripted response left")
	}
	content := f.responses[0]
	f.responses = f.responses[1:]

	return &llm.ChatResponse{
		Provider: "fake",
		Model:    req.Model,
		Choices: []llm.ChatChoice{{
			Message:      types.NewAssistantMessage(content),
			FinishReason: "stop",
		}},
		Usage: llm.ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (f *fakeProvider) Stream(context.Context, *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	return nil, fmt.Errorf("fake provider: streaming not scripted")
}

func (f *fakeProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) SupportsJSONSchema() bool { return true }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeProvider) lastCall() *llm.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

// metaDocument 构造一条合法的 meta 决策 JSON。
func metaDocument(agent, finalDraft string) string {
	return fmt.Sprintf(`{
		"step_1": {"workpad_summary": "s", "reasoning_steps": "r", "work_completion": "no"},
		"step_2": {"review": "ok", "reasoning_steps_draft_2": "r2"},
		"Agent": %q,
		"step_3": {"draft_instructions": "d", "review": "ok"},
		"step_4": {"agent_alignment": "aligned", "final_draft": %q}
	}`, agent, finalDraft)
}
