package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	GHL       GHLConfig
	Scheduler SchedulerConfig
	Sync      SyncConfig
	Invoices  InvoicesConfig
	Payroll   PayrollConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GHLConfig holds connection settings for the GoHighLevel REST API.
type GHLConfig struct {
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
}

// SchedulerConfig governs occurrence generation and slot reconciliation.
type SchedulerConfig struct {
	DefaultTimezone       string
	RecurringCalendarName string
	LookupTimeout         time.Duration
	ServiceDueInterval    time.Duration
}

// SyncConfig tunes the background GHL sync queue.
type SyncConfig struct {
	Enabled    bool
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// InvoicesConfig controls invoice creation on job completion.
type InvoicesConfig struct {
	Enabled          bool
	TaxRate          float64
	BusinessName     string
	LogoURL          string
	ArchiveDir       string
	DownloadTTL      time.Duration
	ArchiveRetention time.Duration
}

// PayrollConfig gates automatic payout creation.
type PayrollConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.GHL = GHLConfig{
		BaseURL:    v.GetString("GHL_BASE_URL"),
		APIVersion: v.GetString("GHL_API_VERSION"),
		Timeout:    parseDuration(v.GetString("GHL_HTTP_TIMEOUT"), 15*time.Second),
	}

	cfg.Scheduler = SchedulerConfig{
		DefaultTimezone:       v.GetString("SCHEDULER_DEFAULT_TIMEZONE"),
		RecurringCalendarName: v.GetString("SCHEDULER_RECURRING_CALENDAR"),
		LookupTimeout:         parseDuration(v.GetString("SCHEDULER_LOOKUP_TIMEOUT"), 3*time.Second),
		ServiceDueInterval:    parseDuration(v.GetString("SCHEDULER_SERVICE_DUE_INTERVAL"), 5*time.Minute),
	}

	cfg.Sync = SyncConfig{
		Enabled:    v.GetBool("ENABLE_GHL_SYNC"),
		Workers:    v.GetInt("SYNC_WORKERS"),
		MaxRetries: v.GetInt("SYNC_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("SYNC_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Invoices = InvoicesConfig{
		Enabled:          v.GetBool("ENABLE_INVOICES"),
		TaxRate:          v.GetFloat64("INVOICE_TAX_RATE"),
		BusinessName:     v.GetString("INVOICE_BUSINESS_NAME"),
		LogoURL:          v.GetString("INVOICE_LOGO_URL"),
		ArchiveDir:       v.GetString("INVOICE_ARCHIVE_DIR"),
		DownloadTTL:      parseDuration(v.GetString("INVOICE_DOWNLOAD_TTL"), 24*time.Hour),
		ArchiveRetention: parseDuration(v.GetString("INVOICE_ARCHIVE_RETENTION"), 720*time.Hour),
	}

	cfg.Payroll = PayrollConfig{
		Enabled: v.GetBool("ENABLE_PAYROLL"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "fieldops")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GHL_BASE_URL", "https://services.leadconnectorhq.com")
	v.SetDefault("GHL_API_VERSION", "2021-04-15")
	v.SetDefault("GHL_HTTP_TIMEOUT", "15s")

	v.SetDefault("SCHEDULER_DEFAULT_TIMEZONE", "America/Chicago")
	v.SetDefault("SCHEDULER_RECURRING_CALENDAR", "Reccuring Service Calendar")
	v.SetDefault("SCHEDULER_LOOKUP_TIMEOUT", "3s")
	v.SetDefault("SCHEDULER_SERVICE_DUE_INTERVAL", "5m")

	v.SetDefault("ENABLE_GHL_SYNC", false)
	v.SetDefault("SYNC_WORKERS", 2)
	v.SetDefault("SYNC_MAX_RETRIES", 3)
	v.SetDefault("SYNC_RETRY_DELAY", "5s")

	v.SetDefault("ENABLE_INVOICES", false)
	v.SetDefault("INVOICE_TAX_RATE", 8.25)
	v.SetDefault("INVOICE_BUSINESS_NAME", "TruShine Window Cleaning")
	v.SetDefault("INVOICE_LOGO_URL", "")
	v.SetDefault("INVOICE_ARCHIVE_DIR", "./archive/invoices")
	v.SetDefault("INVOICE_DOWNLOAD_TTL", "24h")
	v.SetDefault("INVOICE_ARCHIVE_RETENTION", "720h")

	v.SetDefault("ENABLE_PAYROLL", false)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
