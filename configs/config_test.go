package configs_test

import (
	"testing"
	"time"

	config "github.com/avatarctic/timecache/configs"
	"github.com/avatarctic/timecache/internal/core/domain/cacheerr"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, config.BackendRedis, cfg.Cache.Backend)
	require.Equal(t, 5*time.Minute, cfg.Cache.LocalDefaultTTL)
	require.Equal(t, time.Duration(0), cfg.Cache.RemoteDefaultTTL)
	require.Equal(t, 2*time.Second, cfg.Cache.OpTimeout)
	require.Equal(t, "6379", cfg.Redis.Port)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "bolt")
	t.Setenv("BOLT_PATH", "/tmp/x.bbolt")
	t.Setenv("CACHE_DEFAULT_TTL", "90s")
	t.Setenv("CACHE_KEY_PREFIX", "svc")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_POOL_SIZE", "not-a-number")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, config.BackendBolt, cfg.Cache.Backend)
	require.Equal(t, "/tmp/x.bbolt", cfg.Bolt.Path)
	require.Equal(t, 90*time.Second, cfg.Cache.LocalDefaultTTL)
	require.Equal(t, "svc", cfg.Cache.KeyPrefix)
	require.Equal(t, 3, cfg.Redis.DB)
	require.Equal(t, 10, cfg.Redis.PoolSize, "unparsable values fall back to defaults")
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Setenv("CACHE_DEFAULT_TTL", "-1m")
	_, err := config.Load()
	require.ErrorIs(t, err, cacheerr.ErrInvalidArgument)
}

func TestValidate_UnknownBackend(t *testing.T) {
	cfg := &config.Config{Cache: config.CacheConfig{Backend: "memcached"}}
	require.ErrorIs(t, cfg.Validate(), cacheerr.ErrInvalidArgument)
}

func TestLoad_TLSFiles(t *testing.T) {
	t.Setenv("TLS_CERT_FILE", "/etc/timecache/tls.crt")
	t.Setenv("TLS_KEY_FILE", "/etc/timecache/tls.key")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "/etc/timecache/tls.crt", cfg.Server.TLSCertFile)
	require.Equal(t, "/etc/timecache/tls.key", cfg.Server.TLSKeyFile)
}

func TestLoad_TLSCertWithoutKey(t *testing.T) {
	t.Setenv("TLS_CERT_FILE", "/etc/timecache/tls.crt")
	_, err := config.Load()
	require.ErrorIs(t, err, cacheerr.ErrInvalidArgument)
}
