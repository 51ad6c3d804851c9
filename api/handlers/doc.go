// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

// Package handlers 实现 HTTP 与 WebSocket 处理器。
//
// 对外暴露四类端点：
//   - /ws          聊天 WebSocket（ChatHandler）
//   - /healthz     存活探针（HealthHandler.HandleHealthz）
//   - /api/health  就绪检查，逐项执行注册的 HealthCheck
//   - /api/runs    按会话查询研究运行历史（RunsHandler）
//
// REST 端点统一使用 Response 信封；WebSocket 帧类型见 api 包。
package handlers
