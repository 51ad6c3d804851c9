// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

/*
Package workflow 提供研究工作流的路由编排引擎。

# 概述

workflow 包实现了 MetaExpert 的核心执行回路：meta 代理读取共享 workpad
并产出结构化决策，引擎按决策中的 Agent 字段把控制权路由给对应的专家代理，
专家执行后回到 meta，直到 meta 把最终稿交给汇报代理或路由目标无法识别。
整个回路受节点执行数上限保护，并通过事件回调对外流式播报进度。

# 核心类型

  - Engine   — 路由编排引擎（START → meta → 专家 → meta → … → END）
  - Config   — 引擎配置（meta 代理、专家团队、节点上限、事件回调）
  - Result   — 单次运行结果（最终报告、节点数、workpad 快照）
  - Event    — 流式事件（node_start / node_complete / node_error / step_progress）
  - Emitter  — 事件回调，可经 WithEmitter 挂到 context 上按次运行覆盖

# 路由规则

  - meta 输出解析失败或 Agent 字段未注册 → END
  - 汇报代理执行完毕 → END
  - 其余专家执行完毕 → 回到 meta
  - 节点执行数超过上限 → 运行以错误终止
*/
package workflow
