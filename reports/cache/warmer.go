package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// =============================================================================
// 🔥 缓存预热
// =============================================================================

// 标准分析查询类型目录。未指定时 WarmAnalytics 预热除 dashboard
// 外的全部类型（仪表盘按用户登录事件单独预热）。
const (
	QueryTypeStudent    = "student"
	QueryTypeAssignment = "assignment"
	QueryTypeProgress   = "progress"
	QueryTypeEngagement = "engagement"
	QueryTypeDashboard  = "dashboard"
)

// DefaultQueryTypes 默认预热的查询类型
func DefaultQueryTypes() []string {
	return []string{QueryTypeStudent, QueryTypeAssignment, QueryTypeProgress, QueryTypeEngagement}
}

// WarmTarget 单个预热目标：键 + 对应的回源函数。
type WarmTarget struct {
	Key     Key
	TTLL1   time.Duration // 0 取默认
	TTLL2   time.Duration // 0 取默认
	Compute ComputeFunc
}

// TargetsFunc 按查询类型列出当前应预热的代表性目标
//（通常是该类型下所有活跃实体），由分析层注册。
type TargetsFunc func(ctx context.Context) ([]WarmTarget, error)

// DashboardTargetsFunc 按用户列出仪表盘预热目标（登录预热用）。
type DashboardTargetsFunc func(ctx context.Context, userID string) ([]WarmTarget, error)

// WarmResult 单次预热批次的结果
type WarmResult struct {
	Warmed  int `json:"warmed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// WarmerConfig 预热配置
type WarmerConfig struct {
	// 并发预热目标数上限
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	// 每秒回源次数上限，0 表示不限流。
	// 批量预热不能压垮底层分析存储。
	RatePerSecond float64 `yaml:"rate_per_second" json:"rate_per_second"`
}

// DefaultWarmerConfig 返回默认预热配置
func DefaultWarmerConfig() WarmerConfig {
	return WarmerConfig{
		Concurrency:   4,
		RatePerSecond: 50,
	}
}

// Warmer 主动预热已知热点键（仪表盘、标准分析查询形态）。
// 预热始终是回源+填充，从不先做读检查——目的就是强制新鲜。
// 整批尽力而为：单目标失败记日志计入 failed，绝不中止批次。
//
// 目标来源由嵌入方的分析层通过 Register / RegisterDashboard 提供：
// 只有分析层知道哪些实体当前活跃、以及如何回源计算。缓存服务
// 单独跑时没有来源注册，预热批次会把所有类型计入 skipped，这是
// 预期行为而非故障。
type Warmer struct {
	cache   *MultiLevelCache
	limiter *rate.Limiter
	config  WarmerConfig
	logger  *zap.Logger

	// 分析层可能在调度器已启动后才注册来源，读写都要持锁
	mu      sync.RWMutex
	sources map[string]TargetsFunc
	dash    DashboardTargetsFunc
}

// NewWarmer 创建预热器
func NewWarmer(c *MultiLevelCache, config WarmerConfig, logger *zap.Logger) *Warmer {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultWarmerConfig().Concurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if config.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Concurrency)
	}

	return &Warmer{
		cache:   c,
		sources: make(map[string]TargetsFunc),
		limiter: limiter,
		config:  config,
		logger:  logger.With(zap.String("component", "cache_warmer")),
	}
}

// Register 注册某查询类型的目标来源。重复注册覆盖。
// 可在预热循环运行期间调用，下一个批次生效。
func (w *Warmer) Register(queryType string, fn TargetsFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sources[queryType] = fn
}

// RegisterDashboard 注册仪表盘目标来源
func (w *Warmer) RegisterDashboard(fn DashboardTargetsFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dash = fn
}

func (w *Warmer) source(queryType string) (TargetsFunc, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	fn, ok := w.sources[queryType]
	return fn, ok
}

func (w *Warmer) dashboardSource() DashboardTargetsFunc {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.dash
}

// WarmAnalytics 按查询类型批量预热。queryTypes 为空时用默认目录。
// 未注册来源的类型计入 skipped。
func (w *Warmer) WarmAnalytics(ctx context.Context, queryTypes []string) WarmResult {
	if len(queryTypes) == 0 {
		queryTypes = DefaultQueryTypes()
	}

	batchID := uuid.NewString()
	log := w.logger.With(zap.String("batch_id", batchID))
	start := time.Now()

	var result WarmResult
	for _, qt := range queryTypes {
		source, ok := w.source(qt)
		if !ok {
			log.Debug("no targets source registered, skipping",
				zap.String("query_type", qt))
			result.Skipped++
			continue
		}

		targets, err := source(ctx)
		if err != nil {
			log.Warn("listing warm targets failed",
				zap.String("query_type", qt), zap.Error(err))
			result.Failed++
			continue
		}

		r := w.warmTargets(ctx, log, qt, targets)
		result.Warmed += r.Warmed
		result.Failed += r.Failed
		result.Skipped += r.Skipped
	}

	log.Info("analytics warm batch finished",
		zap.Strings("query_types", queryTypes),
		zap.Int("warmed", result.Warmed),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Duration("elapsed", time.Since(start)))

	if w.cache.metrics != nil {
		w.cache.metrics.RecordWarm(result.Warmed, result.Failed, result.Skipped)
	}
	return result
}

// WarmUserDashboard 登录预热：只预热单个用户的仪表盘目标。
func (w *Warmer) WarmUserDashboard(ctx context.Context, userID string) WarmResult {
	var result WarmResult
	dash := w.dashboardSource()
	if dash == nil {
		result.Skipped++
		return result
	}

	targets, err := dash(ctx, userID)
	if err != nil {
		w.logger.Warn("listing dashboard targets failed",
			zap.String("user_id", userID), zap.Error(err))
		result.Failed++
		return result
	}

	result = w.warmTargets(ctx, w.logger, QueryTypeDashboard, targets)

	w.logger.Debug("user dashboard warmed",
		zap.String("user_id", userID),
		zap.Int("warmed", result.Warmed),
		zap.Int("failed", result.Failed))

	if w.cache.metrics != nil {
		w.cache.metrics.RecordWarm(result.Warmed, result.Failed, result.Skipped)
	}
	return result
}

// warmTargets 以受限并发预热一组目标。goroutine 统一返回 nil：
// 失败只计数，errgroup 在这里只负责并发度与收尾。
func (w *Warmer) warmTargets(ctx context.Context, log *zap.Logger, queryType string, targets []WarmTarget) WarmResult {
	var warmed, failed, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.Concurrency)

	for _, target := range targets {
		target := target
		g.Go(func() error {
			if target.Compute == nil {
				skipped.Add(1)
				return nil
			}
			if w.limiter != nil {
				if err := w.limiter.Wait(gctx); err != nil {
					skipped.Add(1)
					return nil
				}
			}
			if err := w.warmOne(gctx, target); err != nil {
				log.Warn("warm target failed",
					zap.String("query_type", queryType),
					zap.String("key", string(target.Key)),
					zap.Error(err))
				failed.Add(1)
				return nil
			}
			warmed.Add(1)
			return nil
		})
	}
	g.Wait()

	return WarmResult{
		Warmed:  int(warmed.Load()),
		Failed:  int(failed.Load()),
		Skipped: int(skipped.Load()),
	}
}

func (w *Warmer) warmOne(ctx context.Context, target WarmTarget) (err error) {
	// 回源函数来自外部，panic 不应拖垮整个预热批次
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("warm compute panicked: %v", r)
		}
	}()
	return w.cache.Refresh(ctx, target.Key, target.TTLL1, target.TTLL2, target.Compute)
}
