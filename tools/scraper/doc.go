// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

// Package scraper 抓取网页正文，供研究代理消费。
//
// Package scraper fetches a URL and extracts readable text. HTML documents
// yield the text of their <p> elements joined by newlines; PDF documents
// yield their plain text. Anything else produces a fixed "unsupported
// document type" message so downstream agents always receive content
// instead of a hard failure.
//
// 内容类型通过响应头与正文嗅探共同判定，正文读取有大小上限。
package scraper
