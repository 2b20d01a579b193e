// Copyright (c) LearnFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 LearnFlow 缓存管理 HTTP API 的请求处理器实现。

# 概述

handlers 包实现了缓存服务所有 HTTP 端点的请求处理逻辑，
包括缓存统计、失效、清空、预热、健康检查以及统一的响应/错误处理。
所有 Handler 均遵循标准 net/http 接口，通过 Swagger 注解生成 API 文档。

# 核心类型

  - CacheHandler     — 缓存管理：统计、失效、清空、预热、引擎健康探测
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码
  - HealthCheck      — 可插拔健康检查接口（Redis、缓存引擎等）

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）、ValidateContentType
  - ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - 缓存失效：精确键与尾部通配模式两种方式
  - 缓存预热：按查询类型批量预热或按用户预热仪表盘
  - 可扩展健康检查：RegisterCheck 注册自定义 HealthCheck 实现
*/
package handlers
