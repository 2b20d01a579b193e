package cache

import (
	"sync"
	"time"
)

// =============================================================================
// ⚡ L1 进程内缓存层
// =============================================================================

// MemoryTierConfig L1 配置
type MemoryTierConfig struct {
	// 默认 TTL。L1 靠短 TTL 隐式限制稳态容量。
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl"`

	// 最大条目数，0 表示不设硬上限（可选加固项）。
	// 超限时先清扫已过期条目，仍超限则淘汰最旧写入。
	MaxEntries int `yaml:"max_entries" json:"max_entries"`
}

// DefaultMemoryTierConfig 返回默认 L1 配置
func DefaultMemoryTierConfig() MemoryTierConfig {
	return MemoryTierConfig{
		DefaultTTL: 60 * time.Second,
		MaxEntries: 0,
	}
}

// MemoryTier 进程内 L1。条目状态：缺失 → 存在（未过期）→
// 存在（已过期，逻辑上缺失）→ 缺失。过期在读时惰性检查并顺手删除，
// 周期清扫（Purge）兜底回收从未再被读到的过期条目。
type MemoryTier struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	config  MemoryTierConfig
	clock   Clock
}

// NewMemoryTier 创建 L1
func NewMemoryTier(config MemoryTierConfig, clock Clock) *MemoryTier {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultMemoryTierConfig().DefaultTTL
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &MemoryTier{
		entries: make(map[Key]Entry),
		config:  config,
		clock:   clock,
	}
}

// Get 读取条目。缺失或已过期返回 false，过期条目读时顺手删除。
func (t *MemoryTier) Get(key Key) (Entry, bool) {
	t.mu.RLock()
	entry, ok := t.entries[key]
	t.mu.RUnlock()

	if !ok {
		return Entry{}, false
	}

	if t.clock.Now().After(entry.ExpiresAt) {
		t.mu.Lock()
		// 重查：解锁间隙内条目可能已被覆盖
		if cur, still := t.entries[key]; still && cur.ExpiresAt.Equal(entry.ExpiresAt) {
			delete(t.entries, key)
		}
		t.mu.Unlock()
		return Entry{}, false
	}

	entry.Origin = OriginL1
	return entry, true
}

// Set 无条件覆盖写入。ttl<=0 时取默认 TTL。
func (t *MemoryTier) Set(key Key, entry Entry, ttl time.Duration) {
	if ttl <= 0 {
		ttl = t.config.DefaultTTL
	}
	now := t.clock.Now()
	entry.Key = key
	entry.ExpiresAt = now.Add(ttl)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.config.MaxEntries > 0 && len(t.entries) >= t.config.MaxEntries {
		if _, exists := t.entries[key]; !exists {
			t.evictLocked(now)
		}
	}
	t.entries[key] = entry
}

// Delete 删除条目，键不存在时为空操作。
func (t *MemoryTier) Delete(key Key) {
	t.mu.Lock()
	delete(t.entries, key)
	t.mu.Unlock()
}

// KeysMatching 全量扫描返回匹配模式的键。
// L1 靠短 TTL 保持小容量，全扫描成本可接受。
func (t *MemoryTier) KeysMatching(pattern Pattern) []Key {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var matched []Key
	for key := range t.entries {
		if Matches(pattern, key) {
			matched = append(matched, key)
		}
	}
	return matched
}

// DeleteMatching 删除所有匹配模式的条目，返回删除数。
func (t *MemoryTier) DeleteMatching(pattern Pattern) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for key := range t.entries {
		if Matches(pattern, key) {
			delete(t.entries, key)
			count++
		}
	}
	return count
}

// Size 条目数，含逻辑过期但尚未回收的条目（近似值）。
func (t *MemoryTier) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Purge 清扫所有已过期条目，返回回收数。由周期任务调用。
func (t *MemoryTier) Purge() int {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for key, entry := range t.entries {
		if now.After(entry.ExpiresAt) {
			delete(t.entries, key)
			count++
		}
	}
	return count
}

// Clear 清空 L1
func (t *MemoryTier) Clear() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := len(t.entries)
	t.entries = make(map[Key]Entry)
	return count
}

// evictLocked 容量压力下的淘汰：先回收过期条目，不够再淘汰最旧写入。
// 调用方必须持有写锁。
func (t *MemoryTier) evictLocked(now time.Time) {
	for key, entry := range t.entries {
		if now.After(entry.ExpiresAt) {
			delete(t.entries, key)
		}
	}
	if len(t.entries) < t.config.MaxEntries {
		return
	}

	var oldestKey Key
	var oldest time.Time
	first := true
	for key, entry := range t.entries {
		if first || entry.CreatedAt.Before(oldest) {
			oldestKey = key
			oldest = entry.CreatedAt
			first = false
		}
	}
	if !first {
		delete(t.entries, oldestKey)
	}
}
