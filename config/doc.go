// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

/*
Package config 提供 MetaExpert 的统一配置加载。

优先级自低到高：默认值 → YAML 文件 → .env 文件 → 环境变量。
环境变量使用 METAEXPERT_ 前缀按字段路径覆盖（如 METAEXPERT_SERVER_HTTP_PORT），
各提供商的 API Key 额外支持业内通用的无前缀变量（OPENAI_API_KEY、
SERPER_API_KEY 等），便于直接复用已有的 .env。
*/
package config
