package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"DBPath", cfg.DBPath, filepath.Join(home, ".wbs", "wbs.db")},
		{"Currency", cfg.Currency, "USD"},
		{"Period", cfg.Period, "month"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogCalls", cfg.LogCalls, false},
		{"ServeAddr", cfg.Serve.Addr, "127.0.0.1:8420"},
		{"ServeMetrics", cfg.Serve.Metrics, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WBS_CURRENCY", "eur")
	t.Setenv("WBS_DB_PATH", "/tmp/plans.db")
	t.Setenv("WBS_LOG_CALLS", "true")
	t.Setenv("WBS_SERVE_ADDR", ":9000")

	v := viper.New()
	require.NoError(t, Init(v, ""))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, "/tmp/plans.db", cfg.DBPath)
	assert.True(t, cfg.LogCalls)
	assert.Equal(t, ":9000", cfg.Serve.Addr)
}

func TestInit_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wbs.yaml")
	content := "currency: chf\nperiod: quarter\nlog_level: debug\nserve:\n  metrics: false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	require.NoError(t, Init(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "CHF", cfg.Currency)
	assert.Equal(t, "quarter", cfg.Period)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.False(t, cfg.Serve.Metrics)
	assert.Equal(t, "127.0.0.1:8420", cfg.Serve.Addr, "unset keys keep defaults")
}

func TestInit_MissingExplicitFile(t *testing.T) {
	err := Init(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"period", "week"},
		{"log_level", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}
