package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// ⏰ 周期任务调度
// =============================================================================

// SchedulerConfig 周期任务配置。间隔 <=0 表示关闭对应任务。
type SchedulerConfig struct {
	// 预热间隔
	WarmInterval time.Duration `yaml:"warm_interval" json:"warm_interval"`

	// 预热的查询类型，空取默认目录
	WarmQueryTypes []string `yaml:"warm_query_types" json:"warm_query_types"`

	// L1 过期清扫间隔
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`

	// 统计上报间隔
	StatsInterval time.Duration `yaml:"stats_interval" json:"stats_interval"`

	// 单轮预热的超时
	WarmTimeout time.Duration `yaml:"warm_timeout" json:"warm_timeout"`
}

// DefaultSchedulerConfig 返回默认调度配置
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		WarmInterval:  10 * time.Minute,
		SweepInterval: 1 * time.Minute,
		StatsInterval: 1 * time.Minute,
		WarmTimeout:   2 * time.Minute,
	}
}

// Scheduler 驱动缓存的周期任务：预热、L1 过期清扫、统计上报。
// 缓存引擎本身是同步阻塞的，这里是进程内唯一的后台并发来源。
type Scheduler struct {
	cache  *MultiLevelCache
	warmer *Warmer
	config SchedulerConfig
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler 创建调度器。warmer 可为 nil（只跑清扫与统计）。
func NewScheduler(c *MultiLevelCache, w *Warmer, config SchedulerConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cache:  c,
		warmer: w,
		config: config,
		logger: logger.With(zap.String("component", "cache_scheduler")),
	}
}

// Start 启动全部已启用的周期任务（非阻塞）。重复启动报错。
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.done = make(chan struct{})

	if s.config.WarmInterval > 0 && s.warmer != nil {
		s.wg.Add(1)
		go s.loop(s.config.WarmInterval, s.runWarm)
	}
	if s.config.SweepInterval > 0 {
		s.wg.Add(1)
		go s.loop(s.config.SweepInterval, s.runSweep)
	}
	if s.config.StatsInterval > 0 {
		s.wg.Add(1)
		go s.loop(s.config.StatsInterval, s.runStatsEmit)
	}

	s.logger.Info("cache scheduler started",
		zap.Duration("warm_interval", s.config.WarmInterval),
		zap.Duration("sweep_interval", s.config.SweepInterval),
		zap.Duration("stats_interval", s.config.StatsInterval))
	return nil
}

// Stop 停止并等待所有任务退出
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("cache scheduler stopped")
}

func (s *Scheduler) loop(interval time.Duration, job func()) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			job()
		}
	}
}

func (s *Scheduler) runWarm() {
	timeout := s.config.WarmTimeout
	if timeout <= 0 {
		timeout = DefaultSchedulerConfig().WarmTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result := s.warmer.WarmAnalytics(ctx, s.config.WarmQueryTypes)
	if result.Failed > 0 {
		s.logger.Warn("scheduled warm had failures",
			zap.Int("warmed", result.Warmed),
			zap.Int("failed", result.Failed))
	}
}

func (s *Scheduler) runSweep() {
	purged := s.cache.PurgeExpired()
	if purged > 0 {
		s.logger.Debug("l1 sweep", zap.Int("purged", purged),
			zap.Int("remaining", s.cache.L1Size()))
	}
}

func (s *Scheduler) runStatsEmit() {
	snap := s.cache.GetStats()
	s.logger.Info("cache stats",
		zap.Int64("requests", snap.Requests),
		zap.Int64("hits", snap.Hits),
		zap.Int64("misses", snap.Misses),
		zap.Int64("computes", snap.Computes),
		zap.Float64("hit_rate", snap.HitRate),
		zap.Int("l1_entries", s.cache.L1Size()))

	if s.cache.metrics != nil {
		s.cache.metrics.SetL1Entries(s.cache.L1Size())
	}
}
