package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 预热测试
// =============================================================================

func newTestWarmer(t *testing.T) (*MultiLevelCache, *Warmer) {
	t.Helper()

	l1 := NewMemoryTier(DefaultMemoryTierConfig(), nil)
	c := NewMultiLevelCache(l1, nil, nil, DefaultMultiLevelConfig(), zap.NewNop())

	cfg := DefaultWarmerConfig()
	cfg.Concurrency = 1 // 顺序执行，便于断言"失败后仍继续"
	cfg.RatePerSecond = 0
	return c, NewWarmer(c, cfg, zap.NewNop())
}

func staticTargets(targets ...WarmTarget) TargetsFunc {
	return func(ctx context.Context) ([]WarmTarget, error) {
		return targets, nil
	}
}

func okCompute(value any) ComputeFunc {
	return func(ctx context.Context) (any, error) { return value, nil }
}

func TestWarmAnalytics_PopulatesCache(t *testing.T) {
	c, w := newTestWarmer(t)

	w.Register(QueryTypeStudent, staticTargets(
		WarmTarget{Key: "analytics:student:1:overall", Compute: okCompute("s1")},
		WarmTarget{Key: "analytics:student:2:overall", Compute: okCompute("s2")},
	))

	result := w.WarmAnalytics(context.Background(), []string{QueryTypeStudent})
	assert.Equal(t, WarmResult{Warmed: 2}, result)

	// 预热后的读取直接命中，不触发回源
	_, err := c.GetOrCompute(context.Background(), "analytics:student:1:overall", 0, 0, mustNotCompute(t))
	require.NoError(t, err)
}

func TestWarmAnalytics_AllTargetsAttempted(t *testing.T) {
	_, w := newTestWarmer(t)

	attempted := []string{}
	mark := func(id string, fail bool) ComputeFunc {
		return func(ctx context.Context) (any, error) {
			attempted = append(attempted, id)
			if fail {
				return nil, errors.New("compute failed")
			}
			return id, nil
		}
	}

	// 目标 #2 失败不得中止后续目标
	w.Register(QueryTypeAssignment, staticTargets(
		WarmTarget{Key: "analytics:assignment:1", Compute: mark("1", false)},
		WarmTarget{Key: "analytics:assignment:2", Compute: mark("2", true)},
		WarmTarget{Key: "analytics:assignment:3", Compute: mark("3", false)},
	))

	result := w.WarmAnalytics(context.Background(), []string{QueryTypeAssignment})
	assert.Equal(t, 2, result.Warmed)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, attempted, 3)
}

func TestWarmAnalytics_UnregisteredTypeSkipped(t *testing.T) {
	_, w := newTestWarmer(t)

	result := w.WarmAnalytics(context.Background(), []string{QueryTypeEngagement})
	assert.Equal(t, WarmResult{Skipped: 1}, result)
}

func TestWarmAnalytics_DefaultCatalog(t *testing.T) {
	_, w := newTestWarmer(t)

	w.Register(QueryTypeStudent, staticTargets(
		WarmTarget{Key: "analytics:student:1", Compute: okCompute(1)},
	))

	// 未指定类型时走默认目录：student 预热成功，其余三类 skipped
	result := w.WarmAnalytics(context.Background(), nil)
	assert.Equal(t, 1, result.Warmed)
	assert.Equal(t, 3, result.Skipped)
}

func TestWarmAnalytics_TargetSourceError(t *testing.T) {
	_, w := newTestWarmer(t)

	w.Register(QueryTypeProgress, func(ctx context.Context) ([]WarmTarget, error) {
		return nil, errors.New("listing failed")
	})

	result := w.WarmAnalytics(context.Background(), []string{QueryTypeProgress})
	assert.Equal(t, 1, result.Failed)
}

func TestWarmAnalytics_ComputePanicCounted(t *testing.T) {
	_, w := newTestWarmer(t)

	w.Register(QueryTypeStudent, staticTargets(
		WarmTarget{Key: "analytics:student:1", Compute: func(ctx context.Context) (any, error) {
			panic("bad compute")
		}},
		WarmTarget{Key: "analytics:student:2", Compute: okCompute(2)},
	))

	result := w.WarmAnalytics(context.Background(), []string{QueryTypeStudent})
	assert.Equal(t, 1, result.Warmed)
	assert.Equal(t, 1, result.Failed)
}

func TestWarmAnalytics_ForcesFreshness(t *testing.T) {
	c, w := newTestWarmer(t)
	ctx := context.Background()

	// 缓存里已有旧值
	_, err := c.GetOrCompute(ctx, "analytics:engagement:3", 0, 0, okCompute("stale"))
	require.NoError(t, err)

	w.Register(QueryTypeEngagement, staticTargets(
		WarmTarget{Key: "analytics:engagement:3", Compute: okCompute("fresh")},
	))
	result := w.WarmAnalytics(ctx, []string{QueryTypeEngagement})
	assert.Equal(t, 1, result.Warmed)

	// 预热是回源+覆盖，不是读检查
	payload, err := c.GetOrCompute(ctx, "analytics:engagement:3", 0, 0, mustNotCompute(t))
	require.NoError(t, err)
	assert.JSONEq(t, `"fresh"`, string(payload))
}

func TestWarmUserDashboard(t *testing.T) {
	c, w := newTestWarmer(t)

	w.RegisterDashboard(func(ctx context.Context, userID string) ([]WarmTarget, error) {
		key := Key(fmt.Sprintf("analytics:dashboard:%s", userID))
		return []WarmTarget{{Key: key, Compute: okCompute("dash")}}, nil
	})

	result := w.WarmUserDashboard(context.Background(), "u42")
	assert.Equal(t, WarmResult{Warmed: 1}, result)

	_, err := c.GetOrCompute(context.Background(), "analytics:dashboard:u42", 0, 0, mustNotCompute(t))
	require.NoError(t, err)
}

func TestWarmUserDashboard_NoSource(t *testing.T) {
	_, w := newTestWarmer(t)

	result := w.WarmUserDashboard(context.Background(), "u1")
	assert.Equal(t, WarmResult{Skipped: 1}, result)
}

func TestRegister_ConcurrentWithWarm(t *testing.T) {
	_, w := newTestWarmer(t)
	w.config.Concurrency = 4

	// 分析层可能在预热循环已经跑起来之后才注册来源，
	// 注册与批次并发执行不得有数据竞争
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Register(QueryTypeStudent, staticTargets(
				WarmTarget{Key: Key(fmt.Sprintf("analytics:student:%d:overall", i)), Compute: okCompute(i)},
			))
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.WarmAnalytics(context.Background(), []string{QueryTypeStudent})
		}()
	}
	wg.Wait()

	// 收尾批次必须看到最后一次注册的来源
	result := w.WarmAnalytics(context.Background(), []string{QueryTypeStudent})
	assert.Equal(t, 1, result.Warmed)
}

func TestWarmAnalytics_ConcurrentBatch(t *testing.T) {
	c, w := newTestWarmer(t)
	w.config.Concurrency = 4

	targets := make([]WarmTarget, 20)
	for i := range targets {
		targets[i] = WarmTarget{
			Key:     Key(fmt.Sprintf("analytics:student:%d:overall", i)),
			Compute: okCompute(i),
		}
	}
	w.Register(QueryTypeStudent, staticTargets(targets...))

	result := w.WarmAnalytics(context.Background(), []string{QueryTypeStudent})
	assert.Equal(t, 20, result.Warmed)
	assert.Equal(t, 20, c.L1Size())
}
