// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

// Package api 定义前端与服务端之间的传输类型。
//
// 聊天页面通过 WebSocket 与服务端交换 JSON 帧：客户端只发送
// ClientFrame（用户输入），服务端推送 ServerFrame（对话消息、
// 任务进度、任务列表状态与错误）。REST 接口的响应信封定义在
// api/handlers 包中。
package api
