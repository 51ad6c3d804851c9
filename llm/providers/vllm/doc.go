// Package vllm 实现自托管 vLLM 推理服务的 llm.Provider。
// vLLM 暴露 OpenAI 兼容端点，并通过顶层 guided_json 字段支持
// 约束解码；mistralai 系列模型不接受 system 角色，请求前折叠。
package vllm
