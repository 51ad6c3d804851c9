// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

/*
Package serper 封装 Serper.dev 的 Google 检索 API，提供网页、购物与
学术三类检索及其纯文本格式化，供检索代理作为工具调用。

# 端点

  - /search   — 网页检索，精简为 query/title/link/sitelinks
  - /shopping — 购物检索，保留价格、来源、评分与配送信息
  - /scholar  — 学术检索，精简方式与网页检索一致

# 缓存

Client 支持可选的查询级缓存（进程内 TTL 缓存或 Redis），
相同查询在 TTL 内不会重复计费。
*/
package serper
