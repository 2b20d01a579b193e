// 版权所有 2025 LearnFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 实现 LearnFlow 分析报表的多级缓存引擎。

# 概述

分析查询（学生表现、作业统计、学习进度、参与度、仪表盘）计算成本高，
本包在计算层之上提供两级缓存：L1 为进程内短 TTL 内存层，
L2 为跨实例共享的 Redis 长 TTL 层。读路径为 L1 → L2 → 计算回源，
命中 L2 或回源成功后写透填充上层。

# 核心类型

  - Key / Pattern：由 KeyCodec 规则构造的缓存键与失效通配模式，
    冒号分隔 namespace:entity:id...:qualifier 段，通配符仅允许尾部连续出现。
  - MemoryTier：进程内 L1，读时惰性过期，支持模式扫描与到期清扫。
  - RedisTier：共享 L2，SCAN+DEL 实现模式删除（至少一次语义，非原子）。
  - MultiLevelCache：读路径编排、写透回填、单键与模式失效、命中率统计。
  - Warmer：按查询类型批量预热，单目标失败不影响批次（尽力而为）。
  - Trigger：领域事件（成绩变更、资料浏览、进度更新、报表生成）到
    失效模式集合的映射，事件种类编译期封闭。
  - Scheduler：周期任务（预热、L1 过期清扫、统计上报）。

# 设计约束

  - 缓存永远不是读路径的单点：L2 故障降级为未命中（读）或记日志跳过（写）。
  - 同一冷键的并发回源不做合并（thundering herd 为明确非目标）。
  - 失效为至少一次语义，与领域写入不在同一事务边界内，
    TTL 过期是最终兜底。
  - 统计计数为进程本地近似值，不做跨实例汇总。
*/
package cache
