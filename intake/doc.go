// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

/*
Package intake 提供需求收集对话服务。

# 概述

intake 包实现了 MetaExpert 的前台对话回路：用户与聊天模型逐轮澄清研究
目标，会话历史与冻结的系统提示词保存在 SessionStore 中。当用户发送
字面量 /end 时，服务从模型回复中抽取 Python 围栏代码块作为需求文本，
启动研究工作流，并把最终报告投递回会话。已有报告会以 <prev_work> 注入
系统提示词，使 /feedback 修订对话能够引用上一次的产出。

# 核心类型

  - Service      — 对话服务（Start 开场 + HandleMessage 消息回路）
  - Session      — 会话状态（历史、冻结提示词、上次报告、运行计数）
  - SessionStore — 会话存取接口（内存实现 + Redis 实现，带 TTL）
  - Outbound     — 对外投递的消息（作者 + 内容）
  - Sink         — 投递回调，传输层（WebSocket 等）注入

# 命令约定

  - /start    — 建连时由服务代发，模型回复即开场白，二者均不入历史
  - /end      — 结束需求收集，触发工作流运行
  - /feedback — 对上一份报告提出修订意见，走普通消息回路
*/
package intake
