package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for krxquery
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Data sources
	KRX   KRXConfig
	Naver NaverConfig
	HTTP  HTTPConfig

	// Optional infrastructure
	Redis    RedisConfig
	Database DatabaseConfig
	Sync     SyncConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// KRXConfig holds KRX data portal configuration
type KRXConfig struct {
	BaseURL    string
	RatePerSec int // 0 disables local pacing
}

// NaverConfig holds Naver Finance configuration
type NaverConfig struct {
	BaseURL    string
	ChartURL   string
	RatePerSec int
}

// HTTPConfig holds outbound HTTP settings shared by both sources
type HTTPConfig struct {
	Timeout    time.Duration
	MaxRetries int // 0 = upstream failures are returned as-is
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	CacheTTL time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SyncConfig points at the YAML file describing scheduled sync jobs
type SyncConfig struct {
	ConfigPath string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		KRX: KRXConfig{
			BaseURL:    getEnv("KRX_BASE_URL", "http://data.krx.co.kr"),
			RatePerSec: getEnvAsInt("KRX_RATE_PER_SEC", 2),
		},

		Naver: NaverConfig{
			BaseURL:    getEnv("NAVER_BASE_URL", "https://finance.naver.com"),
			ChartURL:   getEnv("NAVER_CHART_URL", "https://fchart.stock.naver.com"),
			RatePerSec: getEnvAsInt("NAVER_RATE_PER_SEC", 5),
		},

		HTTP: HTTPConfig{
			Timeout:    getEnvAsDuration("HTTP_TIMEOUT", "30s"),
			MaxRetries: getEnvAsInt("HTTP_MAX_RETRIES", 0),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			CacheTTL: getEnvAsDuration("REDIS_CACHE_TTL", "24h"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Sync: SyncConfig{
			ConfigPath: getEnv("SYNC_CONFIG", "sync.yaml"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("HTTP_MAX_RETRIES must be >= 0")
	}
	if c.KRX.BaseURL == "" {
		return fmt.Errorf("KRX_BASE_URL is required")
	}
	return nil
}

// RequireDatabase reports an error when no DATABASE_URL is configured.
// Only the store-backed commands call it.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
