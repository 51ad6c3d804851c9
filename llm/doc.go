// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

/*
Package llm 提供统一的大语言模型接入层，包括 Provider 抽象、错误语义、
重试与弹性封装。

# 概述

本包屏蔽不同模型服务商在接口、鉴权、错误语义和流式协议上的差异，
对上层 agents 与 workflow 暴露一致的请求与响应模型。metaexpert 的
编排依赖结构化输出，因此请求模型内置 ResponseFormat（json_object /
json_schema）而非函数调用。

你可以使用它完成以下典型场景：

- 单一 Provider 的快速接入与调用。
- 受约束的 JSON 输出（guided JSON）。
- 流式输出转发到聊天界面。
- 重试、熔断与健康检查。

# Provider 抽象

核心接口是 [Provider]，包含补全、流式输出、健康检查与能力声明。
具体实现位于 llm/providers 子包；按名称构造见 llm/factory。

# 核心接口

  - [Provider]：LLM 提供者接口，提供 Completion / Stream / HealthCheck /
    Name / SupportsJSONSchema
  - [ResilientProvider]：带重试与熔断的 Provider 装饰器

# 错误处理

所有 Provider 返回 [*Error]，携带稳定的 [ErrorCode]、HTTP 状态与
可重试标记。用 [IsRetryable] 判断是否值得重试，用 [GetErrorCode]
做错误分类。

# 使用示例

	provider := openai.New(cfg, logger)
	resilient := llm.NewResilientProvider(provider, nil, logger)

	resp, err := resilient.Completion(ctx, &llm.ChatRequest{
		Model: "gpt-4o",
		Messages: []types.Message{
			types.NewSystemMessage(system),
			types.NewUserMessage(user),
		},
		ResponseFormat: &llm.ResponseFormat{Type: llm.ResponseFormatJSONObject},
	})
*/
package llm
