// Package config handles loading and validation of application configuration
// from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
	"github.com/washpoint/washpoint-backend/logger"
)

// Environment represents the application's running environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	minJWTLength = 32
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	JwtSecretKey   string      `mapstructure:"JWT_SECRET_KEY" yaml:"jwt_secret_key"`
}

// DatabaseConfig holds PostgreSQL database connection details.
type DatabaseConfig struct {
	Host         string `mapstructure:"HOST" yaml:"host"`
	Port         int    `mapstructure:"PORT" yaml:"port"`
	User         string `mapstructure:"USER" yaml:"user"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	Name         string `mapstructure:"NAME" yaml:"name"`
	SSLMode      string `mapstructure:"SSL_MODE" yaml:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"MAX_OPEN_CONNS" yaml:"max_open_conns"`
}

// URL returns a postgres:// connection URL suitable for golang-migrate and
// other URL-based database tools.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// RedisConfig holds Redis connection details for the realtime mirror and the
// nearby-query cache.
type RedisConfig struct {
	Address      string `mapstructure:"ADDRESS" yaml:"address"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	DB           int    `mapstructure:"DB" yaml:"db"`
	UseTLS       bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
	PoolSize     int    `mapstructure:"POOL_SIZE" yaml:"pool_size"`
	MinIdleConns int    `mapstructure:"MIN_IDLE_CONNS" yaml:"min_idle_conns"`
}

// TrackingConfig holds defaults for per-professional tracking settings and
// limits applied to proximity queries.
type TrackingConfig struct {
	// Defaults applied when a location record is created without explicit settings.
	DefaultUpdateIntervalMs        int  `mapstructure:"DEFAULT_UPDATE_INTERVAL_MS" yaml:"default_update_interval_ms"`
	DefaultSignificantChangeMeters int  `mapstructure:"DEFAULT_SIGNIFICANT_CHANGE_METERS" yaml:"default_significant_change_meters"`
	DefaultBatteryOptimization     bool `mapstructure:"DEFAULT_BATTERY_OPTIMIZATION" yaml:"default_battery_optimization"`
	DefaultMaxHistoryItems         int  `mapstructure:"DEFAULT_MAX_HISTORY_ITEMS" yaml:"default_max_history_items"`
	// NearbyCacheTTLSeconds is the TTL for cached nearby-query results.
	NearbyCacheTTLSeconds int `mapstructure:"NEARBY_CACHE_TTL_SECONDS" yaml:"nearby_cache_ttl_seconds"`
	// StreamMaxEntries caps the realtime mirror's per-professional position stream.
	StreamMaxEntries int `mapstructure:"STREAM_MAX_ENTRIES" yaml:"stream_max_entries"`
}

// PushConfig holds configuration for the push-dispatch collaborator.
type PushConfig struct {
	Enabled        bool   `mapstructure:"ENABLED" yaml:"enabled"`
	ExpoURL        string `mapstructure:"EXPO_URL" yaml:"expo_url"`
	TimeoutSeconds int    `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
}

// WorkerPoolConfig holds configuration for the fanout worker pool.
type WorkerPoolConfig struct {
	MaxWorkers             int `mapstructure:"MAX_WORKERS" yaml:"max_workers"`
	QueueSize              int `mapstructure:"QUEUE_SIZE" yaml:"queue_size"`
	ShutdownTimeoutSeconds int `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS" yaml:"shutdown_timeout_seconds"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server     ServerConfig     `mapstructure:"SERVER" yaml:"server"`
	Database   DatabaseConfig   `mapstructure:"DATABASE" yaml:"database"`
	Redis      RedisConfig      `mapstructure:"REDIS" yaml:"redis"`
	Tracking   TrackingConfig   `mapstructure:"TRACKING" yaml:"tracking"`
	Push       PushConfig       `mapstructure:"PUSH" yaml:"push"`
	WorkerPool WorkerPoolConfig `mapstructure:"WORKER_POOL" yaml:"worker_pool"`
}

// IsProduction returns true if the application runs in production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// DefaultTrackingSettings returns the settings applied to newly created
// location records.
func (c *TrackingConfig) DefaultTrackingSettings() (updateIntervalMs, significantChangeM, maxHistoryItems int, batteryOptimization bool) {
	return c.DefaultUpdateIntervalMs, c.DefaultSignificantChangeMeters, c.DefaultMaxHistoryItems, c.DefaultBatteryOptimization
}

func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables using Viper,
// applies defaults, unmarshals into the Config struct, and validates it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "washpoint_dev")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_OPEN_CONNS", 10)
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 5)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)
	v.SetDefault("TRACKING.DEFAULT_UPDATE_INTERVAL_MS", 30000)
	v.SetDefault("TRACKING.DEFAULT_SIGNIFICANT_CHANGE_METERS", 50)
	v.SetDefault("TRACKING.DEFAULT_BATTERY_OPTIMIZATION", true)
	v.SetDefault("TRACKING.DEFAULT_MAX_HISTORY_ITEMS", 50)
	v.SetDefault("TRACKING.NEARBY_CACHE_TTL_SECONDS", 60)
	v.SetDefault("TRACKING.STREAM_MAX_ENTRIES", 200)
	v.SetDefault("PUSH.ENABLED", true)
	v.SetDefault("PUSH.EXPO_URL", "https://exp.host/--/api/v2/push/send")
	v.SetDefault("PUSH.TIMEOUT_SECONDS", 30)
	v.SetDefault("WORKER_POOL.MAX_WORKERS", 10)
	v.SetDefault("WORKER_POOL.QUEUE_SIZE", 1000)
	v.SetDefault("WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", 30)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.JWT_SECRET_KEY", "JWT_SECRET_KEY"},
		{"DATABASE.HOST", "DB_HOST"},
		{"DATABASE.PORT", "DB_PORT"},
		{"DATABASE.USER", "DB_USER"},
		{"DATABASE.PASSWORD", "DB_PASSWORD"},
		{"DATABASE.NAME", "DB_NAME"},
		{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		{"TRACKING.NEARBY_CACHE_TTL_SECONDS", "NEARBY_CACHE_TTL_SECONDS"},
		{"TRACKING.STREAM_MAX_ENTRIES", "STREAM_MAX_ENTRIES"},
		{"PUSH.ENABLED", "PUSH_ENABLED"},
		{"PUSH.EXPO_URL", "PUSH_EXPO_URL"},
		{"WORKER_POOL.MAX_WORKERS", "WORKER_POOL_MAX_WORKERS"},
		{"WORKER_POOL.QUEUE_SIZE", "WORKER_POOL_QUEUE_SIZE"},
		{"WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", "WORKER_POOL_SHUTDOWN_TIMEOUT_SECONDS"},
	}
	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"dbHost", cfg.Database.Host,
		"redisAddress", cfg.Redis.Address)

	return &cfg, nil
}

// validateConfig enforces invariants that would otherwise surface as
// confusing runtime failures.
func validateConfig(cfg *Config) error {
	if cfg.Server.Environment != EnvDevelopment && cfg.Server.Environment != EnvProduction {
		return fmt.Errorf("invalid environment: %s", cfg.Server.Environment)
	}
	if cfg.IsProduction() && len(cfg.Server.JwtSecretKey) < minJWTLength {
		return fmt.Errorf("JWT_SECRET_KEY must be at least %d characters in production", minJWTLength)
	}
	if cfg.Tracking.DefaultMaxHistoryItems <= 0 {
		return fmt.Errorf("TRACKING.DEFAULT_MAX_HISTORY_ITEMS must be positive")
	}
	if cfg.Tracking.NearbyCacheTTLSeconds <= 0 {
		return fmt.Errorf("TRACKING.NEARBY_CACHE_TTL_SECONDS must be positive")
	}
	return nil
}
