// Package qwen 实现阿里云通义千问（DashScope）的 llm.Provider。
// 走 DashScope 的 OpenAI 兼容模式，路径以 /compatible-mode/v1 开头。
package qwen
