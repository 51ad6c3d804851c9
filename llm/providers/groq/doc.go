// Package groq 实现 Groq OpenAI 兼容端点的 llm.Provider。
// Groq 托管的部分开源模型对多轮 system 消息支持不佳，
// 请求前将全部消息折叠为单条带角色前缀的 user 消息。
package groq
