package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/caravanhq/payments-engine/internal/schedule"
)

// Config holds all configuration for the payments engine
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Plans     PlanConfig      `mapstructure:"plans"`
	Health    HealthConfig    `mapstructure:"health"`
}

type ServerConfig struct {
	Port string `mapstructure:"SERVER_PORT"`
	Host string `mapstructure:"SERVER_HOST"`
	Env  string `mapstructure:"ENV"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"DATABASE_URL"`
	Host     string `mapstructure:"DATABASE_HOST"`
	Port     string `mapstructure:"DATABASE_PORT"`
	Name     string `mapstructure:"DATABASE_NAME"`
	User     string `mapstructure:"DATABASE_USER"`
	Password string `mapstructure:"DATABASE_PASSWORD"`
}

type RedisConfig struct {
	URL      string `mapstructure:"REDIS_URL"`
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	CacheTTL string `mapstructure:"REDIS_CACHE_TTL"`
}

type SchedulerConfig struct {
	ReminderCron string `mapstructure:"SCHEDULER_REMINDER_CRON"`
	ReminderDays int    `mapstructure:"SCHEDULER_REMINDER_DAYS"`
	Timezone     string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

// PlanConfig carries the default payment-plan rules. Per-request overrides
// replace individual fields; everything else falls back to these values.
type PlanConfig struct {
	LumpSumDiscountPercent string `mapstructure:"PLAN_LUMP_SUM_DISCOUNT_PERCENT"`
	DeadlineLeadDays       int    `mapstructure:"PLAN_DEADLINE_LEAD_DAYS"`
	MinInstallmentGapDays  int    `mapstructure:"PLAN_MIN_INSTALLMENT_GAP_DAYS"`
	MaxInstallments        int    `mapstructure:"PLAN_MAX_INSTALLMENTS"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("PLAN_LUMP_SUM_DISCOUNT_PERCENT", "0")
	viper.SetDefault("PLAN_DEADLINE_LEAD_DAYS", schedule.DefaultDeadlineLeadDays)
	viper.SetDefault("PLAN_MIN_INSTALLMENT_GAP_DAYS", schedule.DefaultMinInstallmentGapDays)
	viper.SetDefault("PLAN_MAX_INSTALLMENTS", schedule.DefaultMaxInstallments)
	viper.SetDefault("SCHEDULER_REMINDER_CRON", "0 0 9 * * *")
	viper.SetDefault("SCHEDULER_REMINDER_DAYS", 3)
	viper.SetDefault("SCHEDULER_TIMEZONE", "America/Sao_Paulo")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_CACHE_TTL", "1h")
	viper.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Plans.DeadlineLeadDays < 0 {
		return fmt.Errorf("PLAN_DEADLINE_LEAD_DAYS must not be negative")
	}

	if c.Plans.MinInstallmentGapDays < 1 {
		return fmt.Errorf("PLAN_MIN_INSTALLMENT_GAP_DAYS must be at least 1")
	}

	if c.Plans.MaxInstallments < 2 {
		return fmt.Errorf("PLAN_MAX_INSTALLMENTS must be at least 2")
	}

	if _, err := decimal.NewFromString(c.Plans.LumpSumDiscountPercent); err != nil {
		return fmt.Errorf("PLAN_LUMP_SUM_DISCOUNT_PERCENT must be a valid decimal: %w", err)
	}

	if c.Scheduler.ReminderDays < 1 {
		return fmt.Errorf("SCHEDULER_REMINDER_DAYS must be at least 1")
	}

	if _, err := time.ParseDuration(c.Redis.CacheTTL); err != nil {
		return fmt.Errorf("REDIS_CACHE_TTL must be a valid duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Health.Timeout); err != nil {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be a valid duration: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// PlanDefaults returns the configured plan rules as a schedule.Config.
func (c *Config) PlanDefaults() schedule.Config {
	discount, _ := decimal.NewFromString(c.Plans.LumpSumDiscountPercent)
	return schedule.Config{
		LumpSumDiscountPercent: discount,
		DeadlineLeadDays:       c.Plans.DeadlineLeadDays,
		MinInstallmentGapDays:  c.Plans.MinInstallmentGapDays,
		MaxInstallments:        c.Plans.MaxInstallments,
	}
}

// GetCacheTTL returns the Redis cache TTL as duration
func (c *Config) GetCacheTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Redis.CacheTTL)
	return ttl
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}
