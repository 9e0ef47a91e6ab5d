package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ridedispatch/internal/domain"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NewRelic   NewRelicConfig
	Kafka      KafkaConfig
	Payments   PaymentsConfig
	Dispatch   DispatchConfig
	Commission CommissionConfig
	LogLevel   string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// KafkaConfig holds the trip event publisher configuration.
// Events are only logged when Brokers is empty.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// PaymentsConfig holds gateway credentials. A gateway with empty
// credentials is disabled.
type PaymentsConfig struct {
	Currency          string
	RazorpayKeyID     string
	RazorpayKeySecret string
	StripeSecretKey   string
}

// DispatchConfig holds booking and locking settings.
type DispatchConfig struct {
	HourlyRate     decimal.Decimal
	DefaultTenant  string
	LockTTL        time.Duration
	PolicyCacheTTL time.Duration
	IdempotencyTTL time.Duration
}

// CommissionConfig holds the fallback policy used by tenants that have not
// stored one.
type CommissionConfig struct {
	Default domain.Policy
}

// Load loads configuration from environment variables. It returns every
// malformed value at once, and an error if the default commission policy
// does not sum to 100%.
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second, &errs),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second, &errs),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second, &errs),
			CORSOrigins:     getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "ride_dispatch"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			AutoMigrate: getBoolEnv("DB_AUTO_MIGRATE", true, &errs),

			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 50, &errs),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25, &errs),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute, &errs),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0, &errs),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "ride-dispatch-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false, &errs),
		},
		Kafka: KafkaConfig{
			Brokers:      getListEnv("KAFKA_BROKERS", nil),
			Topic:        getEnv("KAFKA_TOPIC", "trip-transitions"),
			WriteTimeout: getDurationEnv("KAFKA_WRITE_TIMEOUT", 2*time.Second, &errs),
		},
		Payments: PaymentsConfig{
			Currency:          strings.ToUpper(getEnv("PAYMENT_CURRENCY", "INR")),
			RazorpayKeyID:     getEnv("RAZORPAY_KEY_ID", ""),
			RazorpayKeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
			StripeSecretKey:   getEnv("STRIPE_SECRET_KEY", ""),
		},
		Dispatch: DispatchConfig{
			HourlyRate:     getDecimalEnv("HOURLY_RATE", decimal.NewFromInt(400), &errs),
			DefaultTenant:  getEnv("DEFAULT_TENANT_ID", "default"),
			LockTTL:        getDurationEnv("TRIP_LOCK_TTL", 10*time.Second, &errs),
			PolicyCacheTTL: getDurationEnv("POLICY_CACHE_TTL", 5*time.Minute, &errs),
			IdempotencyTTL: getDurationEnv("IDEMPOTENCY_TTL", 24*time.Hour, &errs),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	cfg.Commission.Default = domain.PolicyFromPercent(
		getDecimalEnv("DRIVER_COMMISSION_PERCENT", decimal.NewFromInt(75), &errs),
		getDecimalEnv("DISPATCHER_COMMISSION_PERCENT", decimal.NewFromInt(2), &errs),
		getDecimalEnv("ADMIN_COMMISSION_PERCENT", decimal.NewFromInt(20), &errs),
		getDecimalEnv("SUPER_ADMIN_COMMISSION_PERCENT", decimal.NewFromInt(3), &errs),
	)
	cfg.Commission.Default.TenantID = cfg.Dispatch.DefaultTenant
	cfg.Commission.Default.RemainderRole = domain.CommissionRole(strings.ToUpper(getEnv("COMMISSION_REMAINDER_ROLE", "")))
	if err := cfg.Commission.Default.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("default commission policy: %w", err))
	}

	if !cfg.Dispatch.HourlyRate.IsPositive() {
		errs = append(errs, errors.New("HOURLY_RATE must be > 0"))
	}
	if cfg.Dispatch.LockTTL <= 0 {
		errs = append(errs, errors.New("TRIP_LOCK_TTL must be > 0"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int, errs *[]error) int {
	if value := os.Getenv(key); value != "" {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return defaultValue
		}
		return intVal
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool, errs *[]error) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return defaultValue
		}
		return boolVal
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return defaultValue
		}
		return duration
	}
	return defaultValue
}

func getDecimalEnv(key string, defaultValue decimal.Decimal, errs *[]error) decimal.Decimal {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return defaultValue
		}
		return d
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
