// Package openai 实现 OpenAI 聊天补全的 llm.Provider。
// 支持 json_schema 严格结构化输出；o1 系列模型按其接口限制
// 折叠 system 消息并省略采样参数。
package openai
