package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, "workforce", cfg.AppName)
	require.Equal(t, BackendPool, cfg.WorkerBackend)
	require.Equal(t, 30, cfg.RetentionDays)
	require.Equal(t, 3600, cfg.DBConnMaxLifetime)
	require.Equal(t, 1800, cfg.DBConnMaxIdleTime)
}

func TestLoadReadsConnectionLimits(t *testing.T) {
	t.Setenv("DATABASE_MAX_IDLE_CONN", "5")
	t.Setenv("DATABASE_MAX_OPEN_CONN", "20")
	t.Setenv("DATABASE_CONN_MAX_LIFETIME", "120")
	t.Setenv("DATABASE_CONN_MAX_IDLE_TIME", "60")

	cfg := Load()
	require.Equal(t, 5, cfg.DBMaxIdleConn)
	require.Equal(t, 20, cfg.DBMaxOpenConn)
	require.Equal(t, 120, cfg.DBConnMaxLifetime)
	require.Equal(t, 60, cfg.DBConnMaxIdleTime)
}

func TestNormalizeBackend(t *testing.T) {
	require.Equal(t, BackendInline, normalizeBackend(" Inline "))
	require.Equal(t, BackendPool, normalizeBackend("pool"))
	require.Equal(t, BackendPool, normalizeBackend("something-else"))
}
