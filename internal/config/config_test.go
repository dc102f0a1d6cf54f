package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_PORT", "STORAGE_BACKEND", "CART_KEY", "KAFKA_BROKERS", "CHECKOUT_DELAY", "STORAGE_TIMEOUT"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, BackendMemory, cfg.StorageBackend)
	assert.Equal(t, "shooseCart", cfg.CartKey)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.CheckoutDelay)
	assert.Equal(t, time.Second, cfg.StorageTimeout)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CHECKOUT_DELAY", "500ms")

	cfg, err := FromEnv()

	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.StorageBackend)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 500*time.Millisecond, cfg.CheckoutDelay)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]string{
		"STORAGE_BACKEND": "cookies",
		"REDIS_DB":        "zero",
		"STORAGE_TIMEOUT": "soon",
		"LOG_DEVELOPMENT": "maybe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := FromEnv()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadFile_Overlay(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	cfg, err := FromEnv()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cartstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage_backend: sqlite
sqlite_path: /var/lib/cartstore/cart.db
checkout_delay: 250ms
kafka_brokers: [localhost:9092]
`), 0o600))

	require.NoError(t, cfg.LoadFile(path))
	assert.Equal(t, BackendSQLite, cfg.StorageBackend)
	assert.Equal(t, "/var/lib/cartstore/cart.db", cfg.SQLitePath)
	assert.Equal(t, 250*time.Millisecond, cfg.CheckoutDelay)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "shooseCart", cfg.CartKey)
}

func TestLoadFile_Errors(t *testing.T) {
	cfg := &Config{StorageBackend: BackendMemory, CartKey: "shooseCart"}

	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage_backend: [oops"), 0o600))
	assert.Error(t, cfg.LoadFile(path))

	require.NoError(t, os.WriteFile(path, []byte("cart_key: \"\""), 0o600))
	assert.ErrorIs(t, cfg.LoadFile(path), ErrInvalidConfig)
}
