// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

/*
Package main 提供 MetaExpert 服务端程序入口。

# 概述

cmd/metaexpert 是研究助理服务的可执行入口。serve 子命令在 8105 端口
提供聊天页面、聊天 WebSocket 与 REST 端点，并可在独立端口暴露
Prometheus 指标；migrate 子命令执行数据库迁移。配置来自 YAML、.env
与环境变量，日志使用 zap。

# 核心类型

  - Server           — 主服务器，组装模型、工具、代理团队与会话服务
  - Middleware       — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - responseWriter   — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 子命令：serve（启动服务）、migrate（数据库迁移）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    Metrics、OTelTracing、CORS、RateLimiter（基于 IP）、
    APIKeyAuth（X-API-Key）、JWTAuth（HS256 Bearer）
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号监听 → 关闭 HTTP → 关闭 Metrics → 释放外部连接
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
