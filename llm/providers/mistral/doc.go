// Package mistral 实现 Mistral La Plateforme 的 llm.Provider。
// Mistral 使用 OpenAI 兼容协议，JSON 输出走 json_object 模式。
package mistral
