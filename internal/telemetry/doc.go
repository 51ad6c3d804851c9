// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

// Package telemetry 封装 OpenTelemetry SDK 的初始化，
// 提供集中式的 TracerProvider 与 MeterProvider 配置，
// 以及挂在模型调用链上的 OTel 指标观测器 LLMMetrics。
// 遥测禁用时使用 noop 实现，不连接任何外部服务。
package telemetry
