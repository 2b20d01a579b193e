package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/learnflow/internal/pool"
)

// =============================================================================
// 🌐 L2 共享缓存层（Redis）
// =============================================================================

// RedisTierConfig L2 配置
type RedisTierConfig struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr"`

	// 密码
	Password string `yaml:"password" json:"password"`

	// 数据库编号
	DB int `yaml:"db" json:"db"`

	// 默认过期时间。L2 是跨实例的共享/持久层，TTL 远长于 L1。
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl"`

	// 单次操作超时。L2 退化时不能拖住请求路径。
	OpTimeout time.Duration `yaml:"op_timeout" json:"op_timeout"`

	// 最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// 最小空闲连接数
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`

	// SCAN 每批返回数
	ScanCount int64 `yaml:"scan_count" json:"scan_count"`
}

// DefaultRedisTierConfig 返回默认 L2 配置
func DefaultRedisTierConfig() RedisTierConfig {
	return RedisTierConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		DefaultTTL:   1 * time.Hour,
		OpTimeout:    500 * time.Millisecond,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		ScanCount:    200,
	}
}

// RedisTier 共享 L2。操作契约与 L1 一致，但所有操作走网络且带短超时。
// 连接性故障以 ErrTierUnavailable 包装返回，由上层降级处理。
type RedisTier struct {
	client *redis.Client
	config RedisTierConfig
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// NewRedisTier 创建 L2 并探活
func NewRedisTier(config RedisTierConfig, logger *zap.Logger) (*RedisTier, error) {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultRedisTierConfig().DefaultTTL
	}
	if config.OpTimeout <= 0 {
		config.OpTimeout = DefaultRedisTierConfig().OpTimeout
	}
	if config.ScanCount <= 0 {
		config.ScanCount = DefaultRedisTierConfig().ScanCount
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	t := &RedisTier{
		client: client,
		config: config,
		logger: logger.With(zap.String("component", "redis_tier")),
	}

	logger.Info("redis tier initialized",
		zap.String("addr", config.Addr),
		zap.Duration("default_ttl", config.DefaultTTL),
	)

	return t, nil
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// Get 读取条目。未命中返回 ErrCacheMiss，
// 连接性故障返回 ErrTierUnavailable 包装。
func (t *RedisTier) Get(ctx context.Context, key Key) (Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return Entry{}, fmt.Errorf("%w: tier closed", ErrTierUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, t.config.OpTimeout)
	defer cancel()

	data, err := t.client.Get(ctx, string(key)).Bytes()
	if err == redis.Nil {
		return Entry{}, ErrCacheMiss
	}
	if err != nil {
		return Entry{}, fmt.Errorf("%w: get %s: %v", ErrTierUnavailable, key, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// 负载损坏按未命中处理，顺手删除避免反复解码失败
		t.logger.Warn("corrupt cache payload, dropping",
			zap.String("key", string(key)), zap.Error(err))
		t.client.Del(ctx, string(key))
		return Entry{}, ErrCacheMiss
	}

	entry.Origin = OriginL2
	return entry, nil
}

// Set 覆盖写入。ttl<=0 时取默认 TTL。
func (t *RedisTier) Set(ctx context.Context, key Key, entry Entry, ttl time.Duration) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return fmt.Errorf("%w: tier closed", ErrTierUnavailable)
	}

	if ttl <= 0 {
		ttl = t.config.DefaultTTL
	}

	entry.Key = key
	buf := pool.ByteBufferPool.Get()
	defer pool.ByteBufferPool.Put(buf)
	if err := json.NewEncoder(buf).Encode(entry); err != nil {
		return fmt.Errorf("marshal cache entry %s: %w", key, err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.config.OpTimeout)
	defer cancel()

	if err := t.client.Set(ctx, string(key), buf.Bytes(), ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrTierUnavailable, key, err)
	}
	return nil
}

// Delete 删除键，不存在时为空操作。
func (t *RedisTier) Delete(ctx context.Context, keys ...Key) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return fmt.Errorf("%w: tier closed", ErrTierUnavailable)
	}
	if len(keys) == 0 {
		return nil
	}

	raw := make([]string, len(keys))
	for i, k := range keys {
		raw[i] = string(k)
	}

	ctx, cancel := context.WithTimeout(ctx, t.config.OpTimeout)
	defer cancel()

	if err := t.client.Del(ctx, raw...).Err(); err != nil {
		return fmt.Errorf("%w: delete: %v", ErrTierUnavailable, err)
	}
	return nil
}

// DeleteMatching 按模式删除：SCAN 枚举 + 分批 DEL。
// O(匹配键数)，非原子——并发写入可能与进行中的模式删除竞态，
// 语义为至少一次失效，漏掉的键由 TTL 过期兜底。返回删除数。
func (t *RedisTier) DeleteMatching(ctx context.Context, pattern Pattern) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return 0, fmt.Errorf("%w: tier closed", ErrTierUnavailable)
	}

	// 模式删除可能跨多个 SCAN 往返，超时放宽到单操作的数倍
	ctx, cancel := context.WithTimeout(ctx, 4*t.config.OpTimeout)
	defer cancel()

	iter := t.client.Scan(ctx, 0, redisMatch(pattern), t.config.ScanCount).Iterator()

	deleted := 0
	batch := make([]string, 0, 64)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := t.client.Del(ctx, batch...).Result()
		deleted += int(n)
		batch = batch[:0]
		return err
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 64 {
			if err := flush(); err != nil {
				return deleted, fmt.Errorf("%w: delete matching %s: %v", ErrTierUnavailable, pattern, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("%w: scan %s: %v", ErrTierUnavailable, pattern, err)
	}
	if err := flush(); err != nil {
		return deleted, fmt.Errorf("%w: delete matching %s: %v", ErrTierUnavailable, pattern, err)
	}

	return deleted, nil
}

// Ping 探活
func (t *RedisTier) Ping(ctx context.Context) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return fmt.Errorf("%w: tier closed", ErrTierUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, t.config.OpTimeout)
	defer cancel()

	if err := t.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrTierUnavailable, err)
	}
	return nil
}

// Close 关闭底层连接
func (t *RedisTier) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.logger.Info("closing redis tier")
	return t.client.Close()
}
