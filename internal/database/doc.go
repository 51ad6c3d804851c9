// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

/*
包 database 提供基于 GORM 的数据库连接池管理。

# 概述

本包通过 PoolManager 封装 GORM 与 database/sql 的连接池配置，
把配置层声明的连接上限真正施加到底层连接池，并提供探活与
统一关闭入口。

# 核心类型

  - PoolManager：连接池管理器，持有 GORM DB 实例与底层 sql.DB，
    提供 DB()、Ping()、Stats()、Close() 等生命周期方法。
  - PoolConfig：连接池配置，包含最大空闲连接数、最大打开连接数
    与连接最大生命周期。
*/
package database
