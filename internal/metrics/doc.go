// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

/*
Package metrics 提供基于 Prometheus 的服务指标采集。

# 概述

本包通过 Collector 在私有 Registry 上注册全部指标，避免依赖全局默认
Registry（多实例、测试并行时会触发重复注册 panic）。Handler 返回可直接
挂载的 /metrics HTTP 处理器，Registry 中同时包含 Go 运行时与进程指标。

# 指标分组

  - HTTP：请求总数与耗时，按 method/path 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - LLM：请求总数、耗时与 Token 用量（prompt/completion），按 provider/model
    分组。Collector 实现 llm.Observer，可直接挂到 llm.NewObservedProvider。
  - 工作流：Agent 执行总数与耗时、工具调用计数。NewWorkflowEmitter 返回
    把单次运行的节点事件桥接为指标的回调。
  - 业务：活跃会话 Gauge、研究运行计数（按最终状态）、检索缓存命中率。
*/
package metrics
