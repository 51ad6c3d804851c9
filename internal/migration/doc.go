// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

/*
Package migration 提供运行历史表的 Schema 迁移，基于 golang-migrate，
支持 SQLite、PostgreSQL 与 MySQL 三种方言。

# 概述

各方言的 SQL 迁移文件通过 embed.FS 内嵌进二进制，按版本号顺序执行。
`metaexpert migrate` 子命令经 CLI 类型驱动正向迁移、回滚与状态查询。
SQLite 走 modernc 纯 Go 驱动，无需 CGO。

# 核心类型

  - Migrator    — 迁移操作接口（Up/Down/Steps/Version/Status/Close）
  - SQLMigrator — 默认实现，封装 golang-migrate 实例
  - Config      — 方言、连接串与迁移表名
  - Dialect     — 数据库方言枚举（ParseDialect 解析别名）
  - CLI         — 面向终端的格式化封装
*/
package migration
