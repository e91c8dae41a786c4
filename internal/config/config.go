package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port                  string
	DBURL                 string
	ReadTimeoutSecs       int
	WriteTimeoutSecs      int
	IdleTimeoutSecs       int
	DBMaxConns            int
	DBMinConns            int
	DBMaxIdleSecs         int
	DBMaxLifeSecs         int
	DBConnTimeoutSecs     int
	DBStatementCache      int
	LogLevel              string
	LogFormat             string
	RedisURL              string
	CacheTTLSecs          int
	RecommendDefaultLimit int
	RunMigrations         bool
}

// Load reads configuration from environment variables, applying defaults and validation.
// A .env file in the working directory, when present, seeds variables that are not
// already set.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		DBURL:                 os.Getenv("DB_URL"),
		ReadTimeoutSecs:       getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:      getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:       getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBMaxConns:            getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:            getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:         getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:         getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:     getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:      getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
		RedisURL:              os.Getenv("REDIS_URL"),
		CacheTTLSecs:          getEnvInt("CACHE_TTL_SECS", 300),
		RecommendDefaultLimit: getEnvInt("RECOMMEND_DEFAULT_LIMIT", 10),
		RunMigrations:         getEnvBool("RUN_MIGRATIONS", true),
	}

	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("LOG_FORMAT must be json or console")
	}
	if cfg.CacheTTLSecs <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL_SECS must be positive")
	}
	if cfg.RecommendDefaultLimit <= 0 || cfg.RecommendDefaultLimit > 100 {
		return Config{}, fmt.Errorf("RECOMMEND_DEFAULT_LIMIT must be between 1 and 100")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
