// Package deepseek 实现 DeepSeek 的 llm.Provider。
// DeepSeek 使用 OpenAI 兼容协议，聊天补全路径不带 /v1 前缀。
package deepseek
