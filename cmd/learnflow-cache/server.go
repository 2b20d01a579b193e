package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/learnflow/api/handlers"
	"github.com/BaSui01/learnflow/config"
	"github.com/BaSui01/learnflow/internal/metrics"
	"github.com/BaSui01/learnflow/internal/server"
	"github.com/BaSui01/learnflow/internal/telemetry"
	"github.com/BaSui01/learnflow/reports/cache"
)

// =============================================================================
// 🖥️ 缓存服务器
// =============================================================================

// Server 缓存服务器：装配缓存引擎、预热/调度组件与管理 API。
type Server struct {
	config    *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Providers

	// 缓存组件
	l2        *cache.RedisTier
	engine    *cache.MultiLevelCache
	warmer    *cache.Warmer
	trigger   *cache.Trigger
	scheduler *cache.Scheduler

	// 指标收集器
	metricsCollector *metrics.Collector

	// HTTP 服务器
	httpManager     *server.Manager
	rateLimiterStop context.CancelFunc

	// 处理器
	healthHandler *handlers.HealthHandler
	cacheHandler  *handlers.CacheHandler

	mu sync.Mutex
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, otel *telemetry.Providers) *Server {
	return &Server{
		config:    cfg,
		logger:    logger,
		telemetry: otel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("Initializing LearnFlow cache server")

	// 初始化指标收集器
	s.metricsCollector = metrics.NewCollector("learnflow", s.logger)

	// 初始化缓存引擎
	if err := s.initCacheEngine(); err != nil {
		return err
	}

	// 初始化处理器
	s.initHandlers()

	// 启动后台调度器
	if err := s.scheduler.Start(); err != nil {
		return err
	}

	// 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		s.scheduler.Stop()
		return err
	}

	s.logger.Info("LearnFlow cache server started",
		zap.String("addr", s.config.Server.Addr),
	)

	return nil
}

// initCacheEngine 装配 L1/L2 与多级编排引擎及其外围组件
func (s *Server) initCacheEngine() error {
	l2, err := cache.NewRedisTier(cache.RedisTierConfig{
		Addr:         s.config.Redis.Addr,
		Password:     s.config.Redis.Password,
		DB:           s.config.Redis.DB,
		DefaultTTL:   s.config.Cache.L2TTL,
		OpTimeout:    s.config.Redis.OpTimeout,
		MaxRetries:   s.config.Redis.MaxRetries,
		PoolSize:     s.config.Redis.PoolSize,
		MinIdleConns: s.config.Redis.MinIdleConns,
	}, s.logger)
	if err != nil {
		return err
	}
	s.l2 = l2

	l1 := cache.NewMemoryTier(cache.MemoryTierConfig{
		DefaultTTL: s.config.Cache.L1TTL,
		MaxEntries: s.config.Cache.L1MaxEntries,
	}, cache.SystemClock())

	s.engine = cache.NewMultiLevelCache(l1, l2, cache.NewStats(), cache.MultiLevelConfig{
		Namespace:    s.config.Cache.Namespace,
		DefaultL1TTL: s.config.Cache.L1TTL,
		DefaultL2TTL: s.config.Cache.L2TTL,
	}, s.logger)
	s.engine.SetMetricsRecorder(s.metricsCollector)

	// 预热目标来源由嵌入方的分析层注册（Warmer.Register）。
	// 独立部署时没有来源，预热批次全部计入 skipped。
	s.warmer = cache.NewWarmer(s.engine, cache.WarmerConfig{
		Concurrency:   s.config.Warmer.Concurrency,
		RatePerSecond: s.config.Warmer.RatePerSecond,
	}, s.logger)

	s.trigger = cache.NewTrigger(s.engine, s.logger)

	s.scheduler = cache.NewScheduler(s.engine, s.warmer, cache.SchedulerConfig{
		WarmInterval:   s.config.Scheduler.WarmInterval,
		WarmQueryTypes: s.config.Scheduler.WarmQueryTypes,
		SweepInterval:  s.config.Scheduler.SweepInterval,
		StatsInterval:  s.config.Scheduler.StatsInterval,
		WarmTimeout:    s.config.Scheduler.WarmTimeout,
	}, s.logger)

	return nil
}

// initHandlers 初始化 HTTP 处理器
func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.NewRedisHealthCheck("redis", s.l2.Ping))
	s.healthHandler.RegisterCheck(handlers.NewCacheEngineHealthCheck(s.engine))

	s.cacheHandler = handlers.NewCacheHandler(s.engine, s.warmer, s.trigger, s.logger)
}

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// 缓存管理端点
	mux.HandleFunc("/v1/cache/stats", s.cacheHandler.HandleStats)
	mux.HandleFunc("/v1/cache/stats/reset", s.cacheHandler.HandleResetStats)
	mux.HandleFunc("/v1/cache/invalidate", s.cacheHandler.HandleInvalidate)
	mux.HandleFunc("/v1/cache/clear", s.cacheHandler.HandleClear)
	mux.HandleFunc("/v1/cache/warm", s.cacheHandler.HandleWarm)
	mux.HandleFunc("/v1/cache/events", s.cacheHandler.HandleEvent)
	mux.HandleFunc("/v1/cache/health", s.cacheHandler.HandleCacheHealth)

	// Prometheus 指标端点（与管理 API 同端口）
	mux.Handle("/metrics", promhttp.Handler())

	// 应用中间件
	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
		OTelTracing(),
	}

	if s.config.Server.RateLimitRPS > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		s.rateLimiterStop = cancel
		middlewares = append(middlewares,
			RateLimiter(ctx, s.config.Server.RateLimitRPS, s.config.Server.RateLimitBurst, s.logger))
	}

	if len(s.config.Server.APIKeys) > 0 {
		skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}
		middlewares = append(middlewares,
			APIKeyAuth(s.config.Server.APIKeys, skipAuthPaths, s.logger))
	}

	handler := Chain(mux, middlewares...)

	serverConfig := server.Config{
		Addr:            s.config.Server.Addr,
		ReadTimeout:     s.config.Server.ReadTimeout,
		WriteTimeout:    s.config.Server.WriteTimeout,
		IdleTimeout:     s.config.Server.ReadTimeout * 2,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.config.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)
	return s.httpManager.Start()
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Shutting down LearnFlow cache server")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	// 先停调度器，避免关闭期间再触发预热/清扫
	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	// 停止限流器清理协程
	if s.rateLimiterStop != nil {
		s.rateLimiterStop()
	}

	// 关闭 HTTP 服务器
	var firstErr error
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
			firstErr = err
		}
	}

	// 关闭 Redis 连接
	if s.l2 != nil {
		if err := s.l2.Close(); err != nil {
			s.logger.Error("Redis close error", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	// 关闭遥测
	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			s.logger.Error("telemetry shutdown error", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	s.logger.Info("LearnFlow cache server shutdown complete")
	return firstErr
}

// WaitForShutdown 阻塞等待关闭信号或服务器异常退出
func (s *Server) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-s.httpManager.Errors():
		if err != nil {
			s.logger.Error("HTTP server exited unexpectedly", zap.Error(err))
		}
	}

	if err := s.Shutdown(); err != nil {
		s.logger.Error("shutdown error", zap.Error(err))
	}
}
