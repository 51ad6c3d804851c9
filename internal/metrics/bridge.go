package metrics

import (
	"context"
	"time"

	"github.com/BaSui01/metaexpert/agents"
	"github.com/BaSui01/metaexpert/tools/serper"
	"github.com/BaSui01/metaexpert/workflow"
)

// NewWorkflowEmitter 返回把节点事件转换为指标的事件回调。
// 返回的回调持有单次运行的节点起始时间，只能用于一次 Engine.Run，
// 通常与推送 UI 事件的回调组合后通过 workflow.WithEmitter 挂到 context。
func (c *Collector) NewWorkflowEmitter() workflow.Emitter {
	starts := make(map[string]time.Time)
	return func(event workflow.Event) {
		switch event.Type {
		case workflow.EventNodeStart:
			starts[event.Node] = time.Now()
		case workflow.EventNodeComplete:
			c.recordNode(event.Node, "success", starts)
		case workflow.EventNodeError:
			c.recordNode(event.Node, "error", starts)
		}
	}
}

func (c *Collector) recordNode(node, status string, starts map[string]time.Time) {
	var elapsed time.Duration
	if t0, ok := starts[node]; ok {
		elapsed = time.Since(t0)
		delete(starts, node)
	}
	c.RecordAgentExecution(node, status, elapsed)
	// meta 和 reporter 是编排节点，工具调用计数只统计检索/抓取类节点。
	if node != agents.MetaAgentName && node != agents.ReporterAgentName {
		c.RecordToolCall(node, status)
	}
}

// WrapSearchCache 包装检索缓存并统计命中率。
// 读取失败（含键不存在）计为未命中，读取成功计为命中。
func (c *Collector) WrapSearchCache(name string, inner serper.Cache) serper.Cache {
	return &countedCache{name: name, inner: inner, collector: c}
}

type countedCache struct {
	name      string
	inner     serper.Cache
	collector *Collector
}

func (cc *countedCache) GetJSON(ctx context.Context, key string, dest any) error {
	err := cc.inner.GetJSON(ctx, key, dest)
	if err != nil {
		cc.collector.RecordSearchCacheMiss(cc.name)
		return err
	}
	cc.collector.RecordSearchCacheHit(cc.name)
	return nil
}

func (cc *countedCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	return cc.inner.SetJSON(ctx, key, value, ttl)
}
