package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 20, cfg.DBPoolSize)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.SolverTimeLimit)
	assert.Equal(t, 60*time.Second, cfg.SolverMaxTimeLimit)
	assert.InDelta(t, 0.0001, cfg.BatchPenalty, 1e-12)
	assert.Equal(t, 60, cfg.ExactPenaltyMaxPairs)
	assert.True(t, cfg.SeedOnStart)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("SOLVER_TIME_LIMIT", "5s")
	t.Setenv("BATCH_PENALTY", "0")
	t.Setenv("SEED_ON_START", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.SolverTimeLimit)
	assert.Zero(t, cfg.BatchPenalty)
	assert.False(t, cfg.SeedOnStart)

	p := cfg.Planner()
	assert.Equal(t, 5*time.Second, p.DefaultTimeLimit)
	assert.Zero(t, p.DefaultBatchPenalty)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SOLVER_TIME_LIMIT", "2m")

	_, err := Load()
	assert.Error(t, err)
}
