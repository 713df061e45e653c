// Package config loads TOML configuration via viper with environment
// variable overrides (APP_ prefix) and schema validation.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/wyfcoding/fractionalfunding/pkg/logger"
)

// Config is the root configuration of the platform service.
type Config struct {
	ServiceName string `mapstructure:"service_name"`
	Version     string `mapstructure:"version"`
	// Environment: dev, staging, prod
	Environment string `mapstructure:"environment"`

	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Logger    logger.Config   `mapstructure:"logger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Kyc       KycConfig       `mapstructure:"kyc"`
}

// HTTPConfig configures the gin HTTP server.
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// ReadTimeout / WriteTimeout in seconds
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DatabaseConfig configures the GORM connection pool.
type DatabaseConfig struct {
	// Driver: mysql
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	// ConnMaxLifetime in seconds
	ConnMaxLifetime int  `mapstructure:"conn_max_lifetime"`
	LogEnabled      bool `mapstructure:"log_enabled"`
	// SlowQueryThreshold in milliseconds
	SlowQueryThreshold int `mapstructure:"slow_query_threshold"`
}

// RedisConfig configures the redis client.
type RedisConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	MaxPoolSize int    `mapstructure:"max_pool_size"`
	// Timeouts in seconds
	ConnTimeout  int `mapstructure:"conn_timeout"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// KafkaConfig configures producers and consumers.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
	// SessionTimeout in seconds
	SessionTimeout int `mapstructure:"session_timeout"`
	MaxRetries     int `mapstructure:"max_retries"`
	// RetryBackoff in milliseconds
	RetryBackoff int `mapstructure:"retry_backoff"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// SchedulerConfig configures the in-process payout tick loop.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// IntervalSeconds between ticks
	IntervalSeconds int `mapstructure:"interval_seconds"`
	// ClaimTTLSeconds for the cross-process redis claim lock
	ClaimTTLSeconds int `mapstructure:"claim_ttl_seconds"`
}

// KycConfig points at the external KYC service.
type KycConfig struct {
	// Mode: http or allow_all (dev)
	Mode    string `mapstructure:"mode"`
	BaseURL string `mapstructure:"base_url"`
	// TimeoutSeconds per status lookup
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// Load reads the TOML file at path, applies env overrides and validates.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks required fields and port ranges.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.Scheduler.IntervalSeconds <= 0 {
		return fmt.Errorf("scheduler interval must be positive")
	}
	if c.Kyc.Mode == "http" && c.Kyc.BaseURL == "" {
		return fmt.Errorf("kyc base_url is required in http mode")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.session_timeout", 10)
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval_seconds", 60)
	v.SetDefault("scheduler.claim_ttl_seconds", 300)

	v.SetDefault("kyc.mode", "allow_all")
	v.SetDefault("kyc.timeout_seconds", 5)
}
