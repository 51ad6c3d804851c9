// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

/*
Package server 提供 HTTP 服务器的生命周期管理。

Manager 封装 net/http.Server，提供非阻塞启动、异步错误上报、
SIGINT/SIGTERM 信号监听与带超时的优雅关闭。用 ":0" 启动时可通过
BoundAddr 取实际端口，便于测试。
*/
package server
