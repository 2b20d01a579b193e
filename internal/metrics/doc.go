// 版权所有 2025 LearnFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖缓存引擎、
回源计算、失效、预热与管理 API 五个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
便于 Grafana 等工具进行可视化与告警。Collector 实现
reports/cache 包的 MetricsRecorder 接口，由 MultiLevelCache
在读路径与失效路径上直接上报。

# 主要能力

  - 缓存指标：命中计数（按层 l1/l2 分组）、未命中计数、L1 条目数 Gauge。
  - 回源指标：计算总数（按成败分组）、计算耗时 Histogram。
  - 失效指标：失效操作计数与删除条目计数，按作用域 key/pattern/all 分组。
  - 预热指标：预热目标计数，按结果 warmed/failed/skipped 分组。
  - HTTP 指标：管理 API 的请求总数与耗时，状态码归类为 2xx/3xx/4xx/5xx。
*/
package metrics
