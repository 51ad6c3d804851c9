// Package gemini 实现 Google Gemini generateContent API 的 llm.Provider。
// Gemini 使用自有线格式：消息折叠为带角色前缀的单个 text part，
// JSON 输出通过 generationConfig.response_mime_type 约束。
package gemini
