// =============================================================================
// 📦 LearnFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Redis:     DefaultRedisConfig(),
		Cache:     DefaultCacheConfig(),
		Warmer:    DefaultWarmerConfig(),
		Scheduler: DefaultSchedulerConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimitRPS:    50,
		RateLimitBurst:  100,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		OpTimeout:    500 * time.Millisecond,
	}
}

// DefaultCacheConfig 返回默认缓存引擎配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Namespace:    "analytics",
		L1TTL:        60 * time.Second,
		L2TTL:        time.Hour,
		L1MaxEntries: 0,
	}
}

// DefaultWarmerConfig 返回默认预热配置
func DefaultWarmerConfig() WarmerConfig {
	return WarmerConfig{
		Concurrency:   4,
		RatePerSecond: 50,
	}
}

// DefaultSchedulerConfig 返回默认周期任务配置
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		WarmInterval:   10 * time.Minute,
		WarmQueryTypes: []string{"student", "assignment", "progress", "engagement"},
		SweepInterval:  time.Minute,
		StatsInterval:  time.Minute,
		WarmTimeout:    2 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "learnflow-cache",
		SampleRate:   1.0,
	}
}
