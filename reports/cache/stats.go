package cache

import "sync/atomic"

// =============================================================================
// 📊 命中率统计
// =============================================================================

// TierStats 单层计数器。进程本地，并发安全（原子递增），
// 跨实例不做汇总——这是明确接受的近似语义。
type TierStats struct {
	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
}

// TierSnapshot 单层计数快照
type TierSnapshot struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Sets    int64 `json:"sets"`
	Deletes int64 `json:"deletes"`
}

func (s *TierStats) snapshot() TierSnapshot {
	return TierSnapshot{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Sets:    s.sets.Load(),
		Deletes: s.deletes.Load(),
	}
}

// Stats 缓存全局计数器。由单个 MultiLevelCache 实例持有并通过构造注入，
// 进程内所有调用方共享同一份；仅在进程重启或显式 Reset 时归零。
type Stats struct {
	requests atomic.Int64
	hits     atomic.Int64
	misses   atomic.Int64
	computes atomic.Int64

	l1 TierStats
	l2 TierStats
}

// NewStats 创建计数器
func NewStats() *Stats {
	return &Stats{}
}

// Snapshot 统计快照
type Snapshot struct {
	Requests int64        `json:"requests"`
	Hits     int64        `json:"hits"`
	Misses   int64        `json:"misses"`
	Computes int64        `json:"computes"`
	HitRate  float64      `json:"hit_rate"`
	L1       TierSnapshot `json:"l1"`
	L2       TierSnapshot `json:"l2"`
}

// Snapshot 返回当前计数快照。HitRate = hits/(hits+misses)，
// 无请求时返回 0 而非除零。
func (s *Stats) Snapshot() Snapshot {
	hits := s.hits.Load()
	misses := s.misses.Load()

	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total) * 100
	}

	return Snapshot{
		Requests: s.requests.Load(),
		Hits:     hits,
		Misses:   misses,
		Computes: s.computes.Load(),
		HitRate:  rate,
		L1:       s.l1.snapshot(),
		L2:       s.l2.snapshot(),
	}
}

// Reset 归零全部计数
func (s *Stats) Reset() {
	s.requests.Store(0)
	s.hits.Store(0)
	s.misses.Store(0)
	s.computes.Store(0)
	for _, t := range []*TierStats{&s.l1, &s.l2} {
		t.hits.Store(0)
		t.misses.Store(0)
		t.sets.Store(0)
		t.deletes.Store(0)
	}
}
