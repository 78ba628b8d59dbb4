package configs

import (
	"os"
	"strconv"
	"time"

	"github.com/avatarctic/timecache/internal/core/domain/cacheerr"
	"github.com/joho/godotenv"
)

// Backend names accepted by CACHE_BACKEND.
const (
	BackendRedis = "redis"
	BackendBolt  = "bolt"
)

type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	Cache  CacheConfig
	Bolt   BoltConfig
	Log    LogConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

type RedisConfig struct {
	Host       string
	Port       string
	Password   string
	DB         int
	MaxRetries int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type CacheConfig struct {
	Backend          string
	KeyPrefix        string
	LocalDefaultTTL  time.Duration
	RemoteDefaultTTL time.Duration // 0 = keys never expire unless a TTL is passed
	OpTimeout        time.Duration
}

type BoltConfig struct {
	Path   string
	Bucket string
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:  getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:   getEnv("TLS_KEY_FILE", ""),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			MaxRetries:   getIntEnv("REDIS_MAX_RETRIES", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Cache: CacheConfig{
			Backend:          getEnv("CACHE_BACKEND", BackendRedis),
			KeyPrefix:        getEnv("CACHE_KEY_PREFIX", "timecache"),
			LocalDefaultTTL:  getDurationEnv("CACHE_DEFAULT_TTL", 5*time.Minute),
			RemoteDefaultTTL: getDurationEnv("CACHE_REMOTE_DEFAULT_TTL", 0),
			OpTimeout:        getDurationEnv("CACHE_OP_TIMEOUT", 2*time.Second),
		},
		Bolt: BoltConfig{
			Path:   getEnv("BOLT_PATH", "./timecache.bbolt"),
			Bucket: getEnv("BOLT_BUCKET", "timecache"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the cache layer cannot honour.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendRedis, BackendBolt:
	default:
		return cacheerr.InvalidArgument("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.LocalDefaultTTL < 0 {
		return cacheerr.InvalidArgument("CACHE_DEFAULT_TTL %s is negative", c.Cache.LocalDefaultTTL)
	}
	if c.Cache.RemoteDefaultTTL < 0 {
		return cacheerr.InvalidArgument("CACHE_REMOTE_DEFAULT_TTL %s is negative", c.Cache.RemoteDefaultTTL)
	}
	if c.Cache.OpTimeout < 0 {
		return cacheerr.InvalidArgument("CACHE_OP_TIMEOUT %s is negative", c.Cache.OpTimeout)
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return cacheerr.InvalidArgument("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if c.Cache.Backend == BackendBolt && c.Bolt.Path == "" {
		return cacheerr.InvalidArgument("BOLT_PATH is required for the bolt backend")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
