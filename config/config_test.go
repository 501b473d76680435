package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 500*time.Millisecond, cfg.OutboxEvery)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTTTL())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("OUTBOX_INTERVAL_MS", "250")
	t.Setenv("JWT_TTL_HOURS", "2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 250*time.Millisecond, cfg.OutboxEvery)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wemarket.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7070\"\nredis_addr: localhost:6379\nrate_limit_rps: 5\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)

	t.Setenv("PORT", "6060")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "6060", cfg.Port, "environment wins over the file")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"driver": {"DB_DRIVER": "postgres"},
		"ttl":    {"JWT_TTL_HOURS": "0"},
		"outbox": {"OUTBOX_INTERVAL_MS": "0"},
		"rate":   {"RATE_LIMIT_BURST": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestOpenSQLiteInMemory(t *testing.T) {
	db, err := OpenSQLite("file:config_test?mode=memory&cache=shared", nil)
	require.NoError(t, err)

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}
