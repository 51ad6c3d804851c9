// Package ollama 实现本地 Ollama /api/generate 的 llm.Provider。
// 适合无外部 API key 的本地开发；JSON 输出通过 format:"json" 约束。
package ollama
