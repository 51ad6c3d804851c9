// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

/*
Package types 提供 metaexpert 服务的全局共享类型定义。

# 概述

types 是服务最底层的公共包，不依赖任何内部包，为 llm、agents、workflow、
intake、api 等上层模块提供统一的类型契约。跨包共享的消息类型和枚举均定义
于此，以避免循环依赖。

# 核心类型

  - Role    — 对话角色枚举（system / user / assistant / tool）
  - Message — 对话消息（Role、Content、Name、Timestamp）

# 使用示例

	msg := types.NewUserMessage("find me the best mechanical keyboards")
	sys := types.NewSystemMessage(prompt)
*/
package types
