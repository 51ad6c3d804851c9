// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

/*
Package storage 提供研究运行历史的持久化层。

# 概述

storage 包基于 GORM 保存每次 `/end` 触发的研究运行：需求、最终报告、
节点数与 token 用量。会话在内存中丢失上一份报告时（例如服务重启后），
`/feedback` 通过本包取回该会话最近一次运行的报告。

# 核心类型

  - Run          — 单次研究运行的持久化记录
  - RunStatus    — 运行状态（running / done / failed）
  - RunStore     — 运行历史存取接口
  - GormRunStore — GORM 实现，支持 sqlite / postgres / mysql
  - Open         — 按驱动名打开数据库连接
*/
package storage
