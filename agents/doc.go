// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

/*
Package agents 实现研究代理团队。

# 概述

agents 包定义了 Meta Expert 的代理团队：一个 meta 编排代理、若干工具调用
专家代理（网页检索、购物检索、网页抓取、Tavily 检索）以及一个汇报代理。
团队成员通过共享的 [Workpad] 协作，meta 代理每轮读取 workpad、决定下一个
执行者并下达指令，专家代理执行工具后把结果写回 workpad。

# 核心类型

  - Agent       — 团队成员接口 Invoke(ctx, pad) error
  - Workpad     — 并发安全的共享工作区，按代理名累积 [Document]
  - Registry    — 有序的代理能力注册表，渲染进 meta 提示词
  - Base        — 通用能力：读取 meta 指令、JSON 受限补全
  - ToolCalling — 工具调用代理：指令 → 受限 JSON 参数 → 工具执行 → workpad
  - Meta        — 编排代理：四步推理 + Agent 选择的受限 JSON 输出
  - Reporter    — 汇报代理：仅转发 meta 的最终稿，不调用模型

# 协作协议

meta 代理的每次输出都是固定结构的 JSON（step_1 … step_4 与 Agent 字段）。
专家代理只消费其中的 step_4.final_draft 作为指令；路由只消费 Agent 字段。
路由解析失败或指向未知代理时流程终止，这由 workflow 包负责。
*/
package agents
