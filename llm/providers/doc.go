// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

/*
Package providers 提供各模型服务商的 llm.Provider 实现共享的
错误映射、OpenAI 兼容线格式与工具函数。

具体实现位于子包：

  - openaicompat — OpenAI 兼容协议的通用基座
  - openai       — OpenAI（含 o1 系列的特殊处理）
  - anthropic    — Anthropic Messages API（含 prompt caching）
  - mistral      — Mistral La Plateforme
  - groq         — Groq OpenAI 兼容端点
  - gemini       — Google Gemini generateContent API
  - deepseek     — DeepSeek（无 /v1 前缀的兼容端点）
  - qwen         — 阿里云通义千问 DashScope 兼容模式
  - kimi         — 月之暗面 Kimi
  - ollama       — 本地 Ollama /api/generate
  - vllm         — 自托管 vLLM（guided_json 约束解码）

按名称构造 Provider 请使用 llm/factory 包。
*/
package providers
