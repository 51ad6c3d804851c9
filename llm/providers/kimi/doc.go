// Package kimi 实现月之暗面 Kimi 的 llm.Provider。
// Kimi 使用标准的 OpenAI 兼容协议。
package kimi
