// Package anthropic 实现 Anthropic Messages API 的 llm.Provider。
// 支持 system 提示词缓存（prompt caching）与 SSE 流式输出。
// 结构化输出通过提示词约束实现，Messages API 无 response_format 参数。
package anthropic
