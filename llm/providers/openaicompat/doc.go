// Package openaicompat 提供 OpenAI 兼容聊天协议的通用 Provider 基座。
// openai、mistral、groq、vllm 等子包通过配置端点、认证头与请求钩子
// 复用这里的补全、流式与健康检查实现。
package openaicompat
