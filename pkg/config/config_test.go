package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		unsetEnv(t, "BASE_PATH", "PORT", "LOG_LEVEL", "LOG_FORMAT", "CORS_ALLOWED_ORIGINS", "REMOTE_FETCH_TIMEOUT_SECONDS")
		t.Setenv("CLUSTER_TYPES_DIR", "/etc/cluster-types")
		t.Setenv("JWT_SECRET", "secret")

		cfg, err := New()

		require.NoError(t, err)
		assert.Equal(t, Config{
			Port:               8080,
			ClusterTypesDir:    "/etc/cluster-types",
			JWTSecret:          "secret",
			LogLevel:           slog.LevelInfo,
			LogFormat:          "json",
			RemoteFetchTimeout: 10 * time.Second,
		}, cfg)
		assert.Equal(t, ":8080", cfg.Address())
	})

	t.Run("AllSet", func(t *testing.T) {
		t.Setenv("BASE_PATH", "/cluster-builder")
		t.Setenv("PORT", "42378")
		t.Setenv("CLUSTER_TYPES_DIR", "/etc/cluster-types")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("LOG_FORMAT", "TEXT")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
		t.Setenv("REMOTE_FETCH_TIMEOUT_SECONDS", "3")

		cfg, err := New()

		require.NoError(t, err)
		assert.Equal(t, "/cluster-builder", cfg.BasePath)
		assert.Equal(t, 42378, cfg.Port)
		assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
		assert.Equal(t, 3*time.Second, cfg.RemoteFetchTimeout)
	})

	t.Run("ReportsAllErrors", func(t *testing.T) {
		unsetEnv(t, "CLUSTER_TYPES_DIR", "JWT_SECRET")
		t.Setenv("PORT", "eighty")
		t.Setenv("LOG_FORMAT", "xml")

		_, err := New()

		require.Error(t, err)
		assert.ErrorContains(t, err, `"PORT"`)
		assert.ErrorContains(t, err, `"CLUSTER_TYPES_DIR"`)
		assert.ErrorContains(t, err, `"JWT_SECRET"`)
		assert.ErrorContains(t, err, `"LOG_FORMAT"`)
	})
}

// unsetEnv unsets the given environment variables for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}
