package cache

import (
	"encoding/json"
	"errors"
	"time"
)

// =============================================================================
// 💾 缓存条目
// =============================================================================

// 条目来源标记
const (
	OriginL1      = "l1"
	OriginL2      = "l2"
	OriginCompute = "compute"
)

// Entry 缓存条目。写入后不可变：刷新总是整体覆盖，从不部分更新。
// Value 为不透明负载（调用方自选结构,引擎只做 JSON 序列化搬运）。
type Entry struct {
	Key       Key             `json:"key"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Origin    string          `json:"origin,omitempty"`
}

// ErrCacheMiss 缓存未命中哨兵错误
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// ErrTierUnavailable L2 连接性故障（内部错误）。
// 在 MultiLevelCache 内部被捕获并降级为未命中/跳过写入，
// 永远不会越过 MultiLevelCache 传播给调用方。
var ErrTierUnavailable = errors.New("cache tier unavailable")
