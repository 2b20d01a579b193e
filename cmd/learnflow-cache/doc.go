// Copyright (c) LearnFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 LearnFlow 缓存服务端程序入口。

# 概述

cmd/learnflow-cache 是 LearnFlow 分析缓存服务的可执行入口，装配
L1（进程内存）/ L2（Redis）两级缓存引擎、预热器、失效触发器与后台
调度器，并暴露管理 API、健康检查和 Prometheus 指标。程序支持 YAML
配置文件加载、环境变量覆盖与结构化日志（zap）。

# 核心类型

  - Server            — 主服务器，装配缓存组件并管理 HTTP 生命周期
  - Middleware        — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - responseWriter    — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 子命令：serve（启动服务）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    MetricsMiddleware、OTelTracing、RateLimiter（基于 IP）、APIKeyAuth
  - 管理 API：/v1/cache/ 下的统计、失效、清空、预热、事件与健康端点
  - Metrics：/metrics（Prometheus）与管理 API 同端口
  - 优雅关闭：信号监听 → 停调度器 → 关闭 HTTP → 关闭 Redis → 关闭遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
