// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

// Package tavily 封装 Tavily 检索 API。
//
// Package tavily wraps the Tavily search API. Responses are reduced to the
// query, title, URL and content of each hit so downstream agents receive a
// compact, stable shape. API key problems and quota exhaustion map to typed
// errors with user-facing messages.
package tavily
