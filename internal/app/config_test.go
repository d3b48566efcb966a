package app

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("EVENT_RELAY_KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 1000, cfg.EventHistorySize)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.EventRelayKafkaBrokers)
	assert.Equal(t, "30 3 * * *", cfg.IntegrityCron)
	assert.False(t, cfg.UsesPostgres())
	assert.False(t, cfg.IsProduction())
}

func TestConfigValidate(t *testing.T) {
	base := Config{StorageDriver: StorageMemory, RateLimitPerMinute: 60}
	require.NoError(t, base.Validate())

	cases := map[string]func(*Config){
		"unknown driver":   func(c *Config) { c.StorageDriver = "sqlite" },
		"postgres no dsn":  func(c *Config) { c.StorageDriver = StoragePostgres },
		"negative history": func(c *Config) { c.EventHistorySize = -1 },
		"zero rate":        func(c *Config) { c.RateLimitPerMinute = 0 },
		"kafka no topic":   func(c *Config) { c.EventRelayKafkaBrokers = []string{"k:9092"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("entry", "JE-2025-000001"))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"entry":"JE-2025-000001"`)

	assert.Equal(t, slog.LevelDebug, parseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
