package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Logging    LoggingConfig
	Monitoring MonitoringConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int `validate:"min=1,max=65535"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	RequestsPerMin  int `validate:"gte=0"`
	Environment     string
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver          string `validate:"oneof=sqlite postgres"`
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `validate:"oneof=debug info warn error"`
	Format     string `validate:"oneof=json console"`
	OutputPath string
}

// MonitoringConfig contains the engine's recognised options
type MonitoringConfig struct {
	Platforms                   []platform.Platform `validate:"min=1,dive,required"`
	EnableRateLimitMonitoring   bool
	EnableCompliance            bool
	EnablePolicyChangeDetection bool
	NotificationUserIDs         []int64
	// QueueBackend selects the job queue: memory or redis
	QueueBackend        string `validate:"oneof=memory redis"`
	WorkerConcurrency   int    `validate:"min=1"`
	ExecutionsPerMinute int    `validate:"min=1"`
	ComplianceHour      int    `validate:"min=0,max=23"`
	TickInterval        time.Duration
}

// ComplianceSchedule returns the daily compliance cron expression
func (m MonitoringConfig) ComplianceSchedule() string {
	return fmt.Sprintf("0 %d * * *", m.ComplianceHour)
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	platforms, err := getEnvAsPlatforms("MONITOR_PLATFORMS")
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	userIDs, err := getEnvAsInt64s("MONITOR_NOTIFICATION_USER_IDS")
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			RequestsPerMin:  getEnvAsInt("SERVER_REQUESTS_PER_MINUTE", 600),
			Environment:     getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "ratewatch"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./ratewatch.db"),
		},
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnvAsInt("REDIS_PORT", 6379),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "ratewatch:queue"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		Monitoring: MonitoringConfig{
			Platforms:                   platforms,
			EnableRateLimitMonitoring:   getEnvAsBool("MONITOR_ENABLE_RATE_LIMIT", true),
			EnableCompliance:            getEnvAsBool("MONITOR_ENABLE_COMPLIANCE", true),
			EnablePolicyChangeDetection: getEnvAsBool("MONITOR_ENABLE_POLICY_DETECTION", true),
			NotificationUserIDs:         userIDs,
			QueueBackend:                getEnv("MONITOR_QUEUE_BACKEND", "memory"),
			WorkerConcurrency:           getEnvAsInt("MONITOR_WORKER_CONCURRENCY", 5),
			ExecutionsPerMinute:         getEnvAsInt("MONITOR_EXECUTIONS_PER_MINUTE", 30),
			ComplianceHour:              getEnvAsInt("MONITOR_COMPLIANCE_HOUR", 9),
			TickInterval:                getEnvAsDuration("MONITOR_TICK_INTERVAL", time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	v := validator.New()
	for _, section := range []interface{}{c.Server, c.Database, c.Logging, c.Monitoring} {
		if err := v.Struct(section); err != nil {
			return err
		}
	}

	for _, p := range c.Monitoring.Platforms {
		if !p.IsValid() {
			return fmt.Errorf("unknown platform: %s", p)
		}
	}

	return nil
}

// Helper functions

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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvAsPlatforms defaults to every known platform when unset
func getEnvAsPlatforms(key string) ([]platform.Platform, error) {
	names := getEnvAsSlice(key, nil)
	if len(names) == 0 {
		return platform.All(), nil
	}
	platforms := make([]platform.Platform, 0, len(names))
	for _, name := range names {
		p, err := platform.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		platforms = append(platforms, p)
	}
	return platforms, nil
}

func getEnvAsInt64s(key string) ([]int64, error) {
	var ids []int64
	for _, part := range getEnvAsSlice(key, nil) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid user id %q", key, part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
