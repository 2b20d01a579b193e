package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- DefaultConfig aggregate ---

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	// Each sub-config should be non-zero
	assert.NotEqual(t, ServerConfig{}, cfg.Server)
	assert.NotEqual(t, RedisConfig{}, cfg.Redis)
	assert.NotEqual(t, CacheConfig{}, cfg.Cache)
	assert.NotEqual(t, WarmerConfig{}, cfg.Warmer)
	assert.NotEqual(t, SchedulerConfig{}, cfg.Scheduler)
	assert.NotEqual(t, LogConfig{}, cfg.Log)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
}

func TestDefaultConfig_PassesValidation(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

// --- Individual Default*Config functions ---

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50.0, cfg.RateLimitRPS)
	assert.Equal(t, 100, cfg.RateLimitBurst)
	assert.Empty(t, cfg.APIKeys)
}

func TestDefaultRedisConfig(t *testing.T) {
	cfg := DefaultRedisConfig()
	assert.Equal(t, "localhost:6379", cfg.Addr)
	assert.Empty(t, cfg.Password)
	assert.Equal(t, 0, cfg.DB)
	assert.Equal(t, 10, cfg.PoolSize)
	assert.Equal(t, 2, cfg.MinIdleConns)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.OpTimeout)
}

func TestDefaultCacheConfig(t *testing.T) {
	cfg := DefaultCacheConfig()
	assert.Equal(t, "analytics", cfg.Namespace)
	assert.Equal(t, 60*time.Second, cfg.L1TTL)
	assert.Equal(t, time.Hour, cfg.L2TTL)
	// 0 表示 L1 条目数不限
	assert.Equal(t, 0, cfg.L1MaxEntries)
}

func TestDefaultWarmerConfig(t *testing.T) {
	cfg := DefaultWarmerConfig()
	assert.Equal(t, 4, cfg.Concurrency)
	assert.InDelta(t, 50, cfg.RatePerSecond, 0.001)
}

func TestDefaultSchedulerConfig(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	assert.Equal(t, 10*time.Minute, cfg.WarmInterval)
	assert.Equal(t, []string{"student", "assignment", "progress", "engagement"}, cfg.WarmQueryTypes)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, time.Minute, cfg.StatsInterval)
	assert.Equal(t, 2*time.Minute, cfg.WarmTimeout)
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
}

func TestDefaultTelemetryConfig(t *testing.T) {
	cfg := DefaultTelemetryConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "learnflow-cache", cfg.ServiceName)
	assert.InDelta(t, 1.0, cfg.SampleRate, 0.001)
}
