// Copyright (c) LearnFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 LearnFlow 缓存服务的全局共享类型定义。

# 概述

types 是服务最底层的公共包，不依赖任何内部包，为 reports/cache、api
等上层模块提供统一的类型契约。跨包共享的错误码与结构化错误均定义于此，
以避免循环依赖。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable、Tier 标记

# 主要能力

  - 错误工具链：WithCause / WithHTTPStatus / WithRetryable / WithTier
  - 错误检查：IsRetryable / GetErrorCode
*/
package types
