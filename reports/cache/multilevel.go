package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// =============================================================================
// 🎛️ 多级缓存编排
// =============================================================================

// ComputeFunc 回源计算函数。由调用方提供（分析查询处理器等），
// 可能自带 I/O；其超时与取消由调用方通过 ctx 负责，缓存不做额外约束。
type ComputeFunc func(ctx context.Context) (any, error)

// MetricsRecorder 缓存事件的指标出口。实现方见 internal/metrics。
type MetricsRecorder interface {
	RecordHit(tier string)
	RecordMiss()
	RecordCompute(elapsed time.Duration, failed bool)
	RecordInvalidation(scope string, count int)
	RecordWarm(warmed, failed, skipped int)
	SetL1Entries(n int)
}

// MultiLevelConfig 编排层配置
type MultiLevelConfig struct {
	// 键命名空间，ClearAll 的作用域
	Namespace string `yaml:"namespace" json:"namespace"`

	// GetOrCompute 未显式指定时的默认 TTL
	DefaultL1TTL time.Duration `yaml:"default_l1_ttl" json:"default_l1_ttl"`
	DefaultL2TTL time.Duration `yaml:"default_l2_ttl" json:"default_l2_ttl"`
}

// DefaultMultiLevelConfig 返回默认编排配置
func DefaultMultiLevelConfig() MultiLevelConfig {
	return MultiLevelConfig{
		Namespace:    "analytics",
		DefaultL1TTL: 60 * time.Second,
		DefaultL2TTL: 1 * time.Hour,
	}
}

// MultiLevelCache 读路径编排：L1 → L2 → 回源计算，命中下层后写透回填上层。
//
// 同一冷键的并发调用各自独立回源（不做请求合并），后写覆盖先写，
// 两次返回各自有效——相同键在相同底层数据状态下的计算结果应当等价。
// 缓存不是领域数据的事实源，从不参与领域写入的事务边界。
type MultiLevelCache struct {
	l1     *MemoryTier
	l2     *RedisTier
	stats  *Stats
	config MultiLevelConfig

	metrics MetricsRecorder
	tracer  trace.Tracer
	clock   Clock
	logger  *zap.Logger
}

// NewMultiLevelCache 创建多级缓存。l2 可为 nil（仅本地模式，测试常用）。
// stats 为 nil 时内部自建；一个实例一份计数器，不依赖任何包级全局。
func NewMultiLevelCache(l1 *MemoryTier, l2 *RedisTier, stats *Stats, config MultiLevelConfig, logger *zap.Logger) *MultiLevelCache {
	if l1 == nil {
		l1 = NewMemoryTier(DefaultMemoryTierConfig(), nil)
	}
	if stats == nil {
		stats = NewStats()
	}
	if config.Namespace == "" {
		config.Namespace = DefaultMultiLevelConfig().Namespace
	}
	if config.DefaultL1TTL <= 0 {
		config.DefaultL1TTL = DefaultMultiLevelConfig().DefaultL1TTL
	}
	if config.DefaultL2TTL <= 0 {
		config.DefaultL2TTL = DefaultMultiLevelConfig().DefaultL2TTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MultiLevelCache{
		l1:     l1,
		l2:     l2,
		stats:  stats,
		config: config,
		tracer: otel.Tracer("github.com/BaSui01/learnflow/reports/cache"),
		clock:  SystemClock(),
		logger: logger.With(zap.String("component", "multilevel_cache")),
	}
}

// SetMetricsRecorder 注入指标出口，nil 表示不上报。
func (c *MultiLevelCache) SetMetricsRecorder(r MetricsRecorder) {
	c.metrics = r
}

// setClock 测试注入时钟
func (c *MultiLevelCache) setClock(clock Clock) {
	c.clock = clock
	c.l1.clock = clock
}

// =============================================================================
// 🎯 读路径
// =============================================================================

// GetOrCompute 主读路径：依次尝试 L1、L2，全部未命中时调用 compute
// 回源并写透填充两层。ttl<=0 时取配置默认值。
//
// 每次调用恰好记一次命中或未命中（跨层跳转不重复计数）。
// compute 返回的错误原样传播给调用方，失败不写入任何条目。
// L2 故障降级为未命中（读）或记日志跳过（写），从不阻断请求路径。
func (c *MultiLevelCache) GetOrCompute(ctx context.Context, key Key, ttlL1, ttlL2 time.Duration, compute ComputeFunc) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "cache.get_or_compute",
		trace.WithAttributes(attribute.String("cache.key", string(key))))
	defer span.End()

	if ttlL1 <= 0 {
		ttlL1 = c.config.DefaultL1TTL
	}
	if ttlL2 <= 0 {
		ttlL2 = c.config.DefaultL2TTL
	}

	c.stats.requests.Add(1)

	// 1. L1
	if entry, ok := c.l1.Get(key); ok {
		c.stats.hits.Add(1)
		c.stats.l1.hits.Add(1)
		c.recordHit(OriginL1)
		span.SetAttributes(attribute.String("cache.outcome", "l1_hit"))
		return entry.Value, nil
	}
	c.stats.l1.misses.Add(1)

	// 2. L2
	if c.l2 != nil {
		entry, err := c.l2.Get(ctx, key)
		switch {
		case err == nil:
			c.stats.hits.Add(1)
			c.stats.l2.hits.Add(1)
			c.l1.Set(key, entry, ttlL1)
			c.stats.l1.sets.Add(1)
			c.recordHit(OriginL2)
			span.SetAttributes(attribute.String("cache.outcome", "l2_hit"))
			return entry.Value, nil
		case IsCacheMiss(err):
			c.stats.l2.misses.Add(1)
		default:
			// 降级：L2 故障视同未命中，继续回源
			c.stats.l2.misses.Add(1)
			c.logger.Warn("l2 read degraded, treating as miss",
				zap.String("key", string(key)), zap.Error(err))
		}
	}

	// 3. 回源
	c.stats.misses.Add(1)
	c.stats.computes.Add(1)
	if c.metrics != nil {
		c.metrics.RecordMiss()
	}
	span.SetAttributes(attribute.String("cache.outcome", "compute"))

	start := c.clock.Now()
	value, err := compute(ctx)
	elapsed := c.clock.Now().Sub(start)
	if c.metrics != nil {
		c.metrics.RecordCompute(elapsed, err != nil)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal computed value for %s: %w", key, err)
	}

	entry := Entry{
		Key:       key,
		Value:     payload,
		CreatedAt: c.clock.Now(),
		Origin:    OriginCompute,
	}
	c.populate(ctx, key, entry, ttlL1, ttlL2)

	return payload, nil
}

// GetOrComputeJSON GetOrCompute 的便捷形式，结果反序列化进 dest。
func (c *MultiLevelCache) GetOrComputeJSON(ctx context.Context, key Key, ttlL1, ttlL2 time.Duration, dest any, compute ComputeFunc) error {
	payload, err := c.GetOrCompute(ctx, key, ttlL1, ttlL2, compute)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("unmarshal cached value for %s: %w", key, err)
	}
	return nil
}

// Refresh 强制回源并填充两层，绕过读检查。预热的专用入口：
// 预热必须产出新鲜值，而不是确认旧值还在。
func (c *MultiLevelCache) Refresh(ctx context.Context, key Key, ttlL1, ttlL2 time.Duration, compute ComputeFunc) error {
	if ttlL1 <= 0 {
		ttlL1 = c.config.DefaultL1TTL
	}
	if ttlL2 <= 0 {
		ttlL2 = c.config.DefaultL2TTL
	}

	c.stats.computes.Add(1)
	start := c.clock.Now()
	value, err := compute(ctx)
	if c.metrics != nil {
		c.metrics.RecordCompute(c.clock.Now().Sub(start), err != nil)
	}
	if err != nil {
		return err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal computed value for %s: %w", key, err)
	}

	entry := Entry{
		Key:       key,
		Value:     payload,
		CreatedAt: c.clock.Now(),
		Origin:    OriginCompute,
	}
	c.populate(ctx, key, entry, ttlL1, ttlL2)
	return nil
}

// populate 写透填充两层。L2 写失败只记日志，不影响本次结果。
func (c *MultiLevelCache) populate(ctx context.Context, key Key, entry Entry, ttlL1, ttlL2 time.Duration) {
	c.l1.Set(key, entry, ttlL1)
	c.stats.l1.sets.Add(1)

	if c.l2 == nil {
		return
	}
	if err := c.l2.Set(ctx, key, entry, ttlL2); err != nil {
		c.logger.Warn("l2 write degraded, entry not shared",
			zap.String("key", string(key)), zap.Error(err))
		return
	}
	c.stats.l2.sets.Add(1)
}

// =============================================================================
// 🗑️ 失效
// =============================================================================

// Invalidate 删除单键。对不存在的键幂等；L2 故障只记日志，
// 失效是尽力而为，绝不阻断触发它的领域写入路径。
func (c *MultiLevelCache) Invalidate(ctx context.Context, key Key) {
	c.l1.Delete(key)
	c.stats.l1.deletes.Add(1)

	if c.l2 != nil {
		if err := c.l2.Delete(ctx, key); err != nil {
			c.logger.Warn("l2 invalidate failed",
				zap.String("key", string(key)), zap.Error(err))
		} else {
			c.stats.l2.deletes.Add(1)
		}
	}

	if c.metrics != nil {
		c.metrics.RecordInvalidation("key", 1)
	}
}

// InvalidatePattern 模式失效：本地扫描删除 L1 匹配项，
// 并对 L2 发起模式删除。返回 L1 匹配数（L2 计数为尽力而为的近似值，
// 只进日志）。至少一次语义，非原子。
func (c *MultiLevelCache) InvalidatePattern(ctx context.Context, pattern Pattern) int {
	count := c.l1.DeleteMatching(pattern)
	c.stats.l1.deletes.Add(int64(count))

	if c.l2 != nil {
		n, err := c.l2.DeleteMatching(ctx, pattern)
		if err != nil {
			c.logger.Warn("l2 pattern invalidate degraded",
				zap.String("pattern", string(pattern)),
				zap.Int("deleted_before_error", n),
				zap.Error(err))
		}
		c.stats.l2.deletes.Add(int64(n))
		c.logger.Debug("pattern invalidated",
			zap.String("pattern", string(pattern)),
			zap.Int("l1_count", count),
			zap.Int("l2_count", n))
	}

	if c.metrics != nil {
		c.metrics.RecordInvalidation("pattern", count)
	}
	return count
}

// ClearAll 管理性全量清空，作用域为配置的命名空间。
// 影响面大，固定记一条 warn 日志。
func (c *MultiLevelCache) ClearAll(ctx context.Context, includeL1 bool) {
	c.logger.Warn("clearing all cache entries",
		zap.String("namespace", c.config.Namespace),
		zap.Bool("include_l1", includeL1))

	cleared := 0
	if includeL1 {
		cleared = c.l1.Clear()
	}

	if c.l2 != nil {
		// 命名空间级全通配是唯一允许绕过 BuildPattern 校验的模式
		all := Pattern(c.config.Namespace + Delimiter + Wildcard)
		if _, err := c.l2.DeleteMatching(ctx, all); err != nil {
			c.logger.Warn("l2 clear degraded", zap.Error(err))
		}
	}

	if c.metrics != nil {
		c.metrics.RecordInvalidation("all", cleared)
	}
}

// =============================================================================
// 📊 观测
// =============================================================================

// GetStats 返回计数快照
func (c *MultiLevelCache) GetStats() Snapshot {
	return c.stats.Snapshot()
}

// ResetStats 归零计数
func (c *MultiLevelCache) ResetStats() {
	c.stats.Reset()
}

// PurgeExpired 清扫 L1 过期条目，返回回收数。周期任务入口。
func (c *MultiLevelCache) PurgeExpired() int {
	n := c.l1.Purge()
	if c.metrics != nil {
		c.metrics.SetL1Entries(c.l1.Size())
	}
	return n
}

// L1Size L1 当前条目数（近似值）
func (c *MultiLevelCache) L1Size() int {
	return c.l1.Size()
}

func (c *MultiLevelCache) recordHit(tier string) {
	if c.metrics != nil {
		c.metrics.RecordHit(tier)
	}
}
