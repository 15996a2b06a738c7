package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Storage    StorageConfig
	Biometrics BiometricsConfig
	URV        URVConfig
	Timeouts   TimeoutsConfig
	Cron       CronConfig
	Outbox     OutboxConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
	DeviceExpiration time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Name           string
	Version        string
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
	// NetworkCacheTTL bounds how long network policy is cached in process.
	NetworkCacheTTL time.Duration
	// VacancyConcurrency limits partitions processed in parallel per shop.
	VacancyConcurrency int
	StreamKeepalive    time.Duration
}

// StorageConfig selects where tick photos are kept.
type StorageConfig struct {
	Type     string // local | minio
	BasePath string
	BaseURL  string
	MinIO    MinIOConfig
}

type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	UseSSL          bool
}

// BiometricsConfig points at the face recognition service. Empty BaseURL
// disables verification.
type BiometricsConfig struct {
	BaseURL string
	Token   string
}

// URVConfig points at the access control server. Empty BaseURL disables polling.
type URVConfig struct {
	BaseURL  string
	Token    string
	PageSize int
	Overlap  time.Duration
	Lookback time.Duration
	Timezone string
}

// TimeoutsConfig holds per-collaborator request deadlines.
type TimeoutsConfig struct {
	Biometrics   time.Duration
	URV          time.Duration
	Notification time.Duration
}

type CronConfig struct {
	VacancyCheckInterval time.Duration
	URVPollInterval      time.Duration
	StaleFactsInterval   time.Duration
	JobTimeout           time.Duration
}

type OutboxConfig struct {
	WebhookURL    string
	BatchSize     int
	FlushInterval time.Duration
	MaxAttempts   int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file loaded, using process environment", "error", err)
	}

	config := &Config{}
	p := &parser{}

	// Database configuration
	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     p.int("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "wfm"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(p.int("DB_MAX_CONNS", "25")),
		MinConns: int32(p.int("DB_MIN_CONNS", "5")),
	}

	// Application configuration
	config.App = AppConfig{
		Name:               getEnv("APP_NAME", "wfm-backend"),
		Version:            getEnv("APP_VERSION", "v1.0.0"),
		Port:               p.int("APP_PORT", "8080"),
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		AllowedOrigins:     getEnvSlice("CORS_ALLOWED_ORIGINS"),
		NetworkCacheTTL:    p.duration("NETWORK_CACHE_TTL", "1m"),
		VacancyConcurrency: p.int("VACANCY_CONCURRENCY", "4"),
		StreamKeepalive:    p.duration("STREAM_KEEPALIVE", "30s"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: p.duration("JWT_ACCESS_EXPIRATION_TIME", "1h"),
		DeviceExpiration: p.duration("JWT_DEVICE_EXPIRATION_TIME", "720h"),
	}

	// Storage configuration
	config.Storage = StorageConfig{
		Type:     getEnv("STORAGE_TYPE", "local"),
		BasePath: getEnv("STORAGE_BASE_PATH", "./uploads"),
		BaseURL:  getEnv("STORAGE_BASE_URL", "/uploads"),
		MinIO: MinIOConfig{
			Endpoint:        getEnv("MINIO_ENDPOINT", ""),
			AccessKeyID:     getEnv("MINIO_ACCESS_KEY", ""),
			SecretAccessKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:          getEnv("MINIO_BUCKET", "tick-photos"),
			Region:          getEnv("MINIO_REGION", ""),
			UseSSL:          p.bool("MINIO_USE_SSL", "false"),
		},
	}

	config.Biometrics = BiometricsConfig{
		BaseURL: getEnv("BIOMETRICS_BASE_URL", ""),
		Token:   getEnv("BIOMETRICS_TOKEN", ""),
	}

	config.URV = URVConfig{
		BaseURL:  getEnv("URV_BASE_URL", ""),
		Token:    getEnv("URV_TOKEN", ""),
		PageSize: p.int("URV_PAGE_SIZE", "500"),
		Overlap:  p.duration("URV_OVERLAP", "5m"),
		Lookback: p.duration("URV_LOOKBACK", "24h"),
		Timezone: getEnv("URV_TIMEZONE", "UTC"),
	}

	// Request deadlines per collaborator
	config.Timeouts = TimeoutsConfig{
		Biometrics:   p.duration("REQUESTS_TIMEOUT_BIOMETRICS", "5s"),
		URV:          p.duration("REQUESTS_TIMEOUT_URV", "10s"),
		Notification: p.duration("REQUESTS_TIMEOUT_NOTIFICATION", "5s"),
	}

	config.Cron = CronConfig{
		VacancyCheckInterval: p.duration("CRON_VACANCY_CHECK_INTERVAL", "15m"),
		URVPollInterval:      p.duration("CRON_URV_POLL_INTERVAL", "1m"),
		StaleFactsInterval:   p.duration("CRON_STALE_FACTS_INTERVAL", "1h"),
		JobTimeout:           p.duration("CRON_JOB_TIMEOUT", "5m"),
	}

	config.Outbox = OutboxConfig{
		WebhookURL:    getEnv("NOTIFICATION_WEBHOOK_URL", ""),
		BatchSize:     p.int("OUTBOX_BATCH_SIZE", "100"),
		FlushInterval: p.duration("OUTBOX_FLUSH_INTERVAL", "5s"),
		MaxAttempts:   p.int("OUTBOX_MAX_ATTEMPTS", "10"),
	}

	if p.err != nil {
		return nil, p.err
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	switch c.Storage.Type {
	case "local":
	case "minio":
		if c.Storage.MinIO.Endpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required for minio storage")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_TYPE %q", c.Storage.Type)
	}
	if _, err := time.LoadLocation(c.URV.Timezone); err != nil {
		return fmt.Errorf("invalid URV_TIMEZONE: %w", err)
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) int(key, fallback string) int {
	v, err := strconv.Atoi(getEnv(key, fallback))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

func (p *parser) bool(key, fallback string) bool {
	v, err := strconv.ParseBool(getEnv(key, fallback))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

func (p *parser) duration(key, fallback string) time.Duration {
	v, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
