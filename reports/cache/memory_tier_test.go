package cache

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// 🧪 L1 内存层测试
// =============================================================================

func newTestMemoryTier(cfg MemoryTierConfig) (*MemoryTier, *fakeClock) {
	clock := newFakeClock()
	return NewMemoryTier(cfg, clock), clock
}

func TestMemoryTier_SetAndGet(t *testing.T) {
	tier, _ := newTestMemoryTier(DefaultMemoryTierConfig())

	tier.Set("analytics:student:1", Entry{Value: json.RawMessage(`{"avg":87}`)}, time.Minute)

	entry, ok := tier.Get("analytics:student:1")
	require.True(t, ok)
	assert.JSONEq(t, `{"avg":87}`, string(entry.Value))
	assert.Equal(t, OriginL1, entry.Origin)
	assert.Equal(t, Key("analytics:student:1"), entry.Key)
}

func TestMemoryTier_GetAbsent(t *testing.T) {
	tier, _ := newTestMemoryTier(DefaultMemoryTierConfig())

	_, ok := tier.Get("analytics:student:404")
	assert.False(t, ok)
}

func TestMemoryTier_LazyExpiry(t *testing.T) {
	tier, clock := newTestMemoryTier(DefaultMemoryTierConfig())

	tier.Set("k", Entry{Value: json.RawMessage(`1`)}, time.Second)
	assert.Equal(t, 1, tier.Size())

	// 过期后读取视同缺失，且读时顺手回收
	clock.Advance(2 * time.Second)
	_, ok := tier.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, tier.Size())
}

func TestMemoryTier_OverwriteResetsTTL(t *testing.T) {
	tier, clock := newTestMemoryTier(DefaultMemoryTierConfig())

	tier.Set("k", Entry{Value: json.RawMessage(`1`)}, time.Second)
	clock.Advance(900 * time.Millisecond)
	tier.Set("k", Entry{Value: json.RawMessage(`2`)}, time.Second)
	clock.Advance(900 * time.Millisecond)

	entry, ok := tier.Get("k")
	require.True(t, ok)
	assert.Equal(t, `2`, string(entry.Value))
}

func TestMemoryTier_Delete(t *testing.T) {
	tier, _ := newTestMemoryTier(DefaultMemoryTierConfig())

	tier.Set("k", Entry{Value: json.RawMessage(`1`)}, time.Minute)
	tier.Delete("k")
	_, ok := tier.Get("k")
	assert.False(t, ok)

	// 不存在的键删除为空操作
	tier.Delete("missing")
}

func TestMemoryTier_KeysMatching(t *testing.T) {
	tier, _ := newTestMemoryTier(DefaultMemoryTierConfig())

	tier.Set("analytics:student:1:overall", Entry{Value: json.RawMessage(`1`)}, time.Minute)
	tier.Set("analytics:student:1:weekly", Entry{Value: json.RawMessage(`2`)}, time.Minute)
	tier.Set("analytics:student:2:overall", Entry{Value: json.RawMessage(`3`)}, time.Minute)

	matched := tier.KeysMatching("analytics:student:1:*")
	assert.Len(t, matched, 2)
	assert.NotContains(t, matched, Key("analytics:student:2:overall"))
}

func TestMemoryTier_DeleteMatching(t *testing.T) {
	tier, _ := newTestMemoryTier(DefaultMemoryTierConfig())

	tier.Set("analytics:assignment:42:overall", Entry{Value: json.RawMessage(`1`)}, time.Minute)
	tier.Set("analytics:assignment:42:grades", Entry{Value: json.RawMessage(`2`)}, time.Minute)
	tier.Set("analytics:assignment:43:overall", Entry{Value: json.RawMessage(`3`)}, time.Minute)

	count := tier.DeleteMatching("analytics:assignment:42:*")
	assert.Equal(t, 2, count)

	_, ok := tier.Get("analytics:assignment:43:overall")
	assert.True(t, ok)
}

func TestMemoryTier_Purge(t *testing.T) {
	tier, clock := newTestMemoryTier(DefaultMemoryTierConfig())

	tier.Set("short", Entry{Value: json.RawMessage(`1`)}, time.Second)
	tier.Set("long", Entry{Value: json.RawMessage(`2`)}, time.Hour)

	clock.Advance(2 * time.Second)

	// Size 包含逻辑过期但未回收的条目
	assert.Equal(t, 2, tier.Size())
	assert.Equal(t, 1, tier.Purge())
	assert.Equal(t, 1, tier.Size())

	_, ok := tier.Get("long")
	assert.True(t, ok)
}

func TestMemoryTier_CapacityEviction(t *testing.T) {
	cfg := MemoryTierConfig{DefaultTTL: time.Minute, MaxEntries: 3}
	tier, clock := newTestMemoryTier(cfg)

	for i := 0; i < 3; i++ {
		tier.Set(Key(fmt.Sprintf("k%d", i)), Entry{Value: json.RawMessage(`1`)}, time.Minute)
		clock.Advance(time.Millisecond)
	}
	assert.Equal(t, 3, tier.Size())

	// 超限写入淘汰最旧条目
	tier.Set("k3", Entry{Value: json.RawMessage(`2`)}, time.Minute)
	assert.Equal(t, 3, tier.Size())

	_, ok := tier.Get("k0")
	assert.False(t, ok)
	_, ok = tier.Get("k3")
	assert.True(t, ok)
}

func TestMemoryTier_Clear(t *testing.T) {
	tier, _ := newTestMemoryTier(DefaultMemoryTierConfig())

	tier.Set("a", Entry{Value: json.RawMessage(`1`)}, time.Minute)
	tier.Set("b", Entry{Value: json.RawMessage(`2`)}, time.Minute)

	assert.Equal(t, 2, tier.Clear())
	assert.Equal(t, 0, tier.Size())
}
