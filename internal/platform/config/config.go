package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr         string
	LogLevel     string
	CookieSecure bool
	CatalogFile  string

	Redis    RedisConfig
	Postgres PostgresConfig
	Storage  StorageConfig
	Dispatch DispatchConfig
}

// RedisConfig configures the session storage backend. An empty URL keeps
// session areas in process memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the legacy storage backend. An empty URL keeps
// legacy areas in process memory.
type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// StorageConfig holds limits for storage areas.
type StorageConfig struct {
	SessionTTL        time.Duration
	SessionQuotaBytes int
	// LegacyRetention is how long untouched legacy entries are kept before
	// the purge job removes them. Zero disables the job.
	LegacyRetention time.Duration
	PurgeInterval   time.Duration
}

// DispatchConfig points order hand-off at the messaging application.
type DispatchConfig struct {
	BaseURL     string
	Destination string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("ADEGA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	destination := os.Getenv("WHATSAPP_DESTINATION")
	if destination == "" {
		// Development number; production deployments must override it.
		destination = "5511999999999"
	}

	return Server{
		Addr:         addr,
		LogLevel:     envString("LOG_LEVEL", "info"),
		CookieSecure: os.Getenv("COOKIE_SECURE") == "true",
		CatalogFile:  os.Getenv("CATALOG_FILE"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Storage: StorageConfig{
			SessionTTL:        envDuration("SESSION_TTL", 12*time.Hour),
			SessionQuotaBytes: envInt("SESSION_QUOTA_BYTES", 5*1024*1024),
			LegacyRetention:   envDuration("LEGACY_RETENTION", 90*24*time.Hour),
			PurgeInterval:     envDuration("LEGACY_PURGE_INTERVAL", time.Hour),
		},
		Dispatch: DispatchConfig{
			BaseURL:     envString("WHATSAPP_BASE_URL", "https://wa.me"),
			Destination: destination,
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
