package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the studio service.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Generation GenerationConfig `mapstructure:"generation"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	CORS       CORSConfig       `mapstructure:"cors"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

// RedisConfig holds Redis configuration. Redis is optional: status
// publishing is disabled when Address is empty.
type RedisConfig struct {
	Address   string        `mapstructure:"address"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	Channel   string        `mapstructure:"channel"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	StatusTTL time.Duration `mapstructure:"status_ttl"`
}

// Enabled reports whether Redis is configured.
func (c RedisConfig) Enabled() bool {
	return c.Address != ""
}

// StorageConfig holds S3-compatible object storage configuration for
// archiving uploaded images. Disabled when Bucket is empty.
type StorageConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	Bucket          string        `mapstructure:"bucket"`
	Prefix          string        `mapstructure:"prefix"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
}

// Enabled reports whether object storage is configured.
func (c StorageConfig) Enabled() bool {
	return c.Bucket != ""
}

// GeminiConfig holds configuration for the Gemini captioning backend.
// The canned describer is used when APIKey is empty.
type GeminiConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxDimension int           `mapstructure:"max_dimension"`
}

// Enabled reports whether the Gemini describer should be used.
func (c GeminiConfig) Enabled() bool {
	return c.APIKey != ""
}

// GenerationConfig holds simulated generation and session settings.
type GenerationConfig struct {
	TimeoutGrace     time.Duration `mapstructure:"timeout_grace"`
	FailureRate      float64       `mapstructure:"failure_rate"`
	DescriptionDelay time.Duration `mapstructure:"description_delay"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	MaxSessions      int           `mapstructure:"max_sessions"`
}

// BreakerConfig holds circuit breaker settings for the generation backend.
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/studio")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("STUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applySecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration values that would otherwise fail at runtime.
func (c *Config) Validate() error {
	if c.Generation.FailureRate < 0 || c.Generation.FailureRate > 1 {
		return fmt.Errorf("generation.failure_rate must be within [0, 1], got %v", c.Generation.FailureRate)
	}
	if c.Generation.TimeoutGrace < 0 {
		return fmt.Errorf("generation.timeout_grace must not be negative")
	}
	switch c.Server.Mode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	return nil
}

// applySecrets overrides secrets from conventional environment variables.
func applySecrets(cfg *Config) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Gemini.APIKey = key
	}
	if id := os.Getenv("STORAGE_ACCESS_KEY_ID"); id != "" {
		cfg.Storage.AccessKeyID = id
	}
	if secret := os.Getenv("STORAGE_SECRET_ACCESS_KEY"); secret != "" {
		cfg.Storage.SecretAccessKey = secret
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_upload_bytes", 20<<20)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Redis
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "studio:status")
	v.SetDefault("redis.key_prefix", "studio:session:")
	v.SetDefault("redis.status_ttl", time.Hour)

	// Storage
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.prefix", "uploads/")
	v.SetDefault("storage.presign_expiry", 15*time.Minute)

	// Gemini
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.timeout", 30*time.Second)
	v.SetDefault("gemini.max_dimension", 1024)

	// Generation
	v.SetDefault("generation.timeout_grace", 5*time.Second)
	v.SetDefault("generation.failure_rate", 0.0)
	v.SetDefault("generation.description_delay", 2*time.Second)
	v.SetDefault("generation.session_ttl", 30*time.Minute)
	v.SetDefault("generation.sweep_interval", time.Minute)
	v.SetDefault("generation.max_sessions", 1000)

	// Breaker
	v.SetDefault("breaker.max_requests", 3)
	v.SetDefault("breaker.interval", time.Minute)
	v.SetDefault("breaker.timeout", 30*time.Second)
	v.SetDefault("breaker.failure_threshold", 5)

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "studio")
	v.SetDefault("metrics.path", "/metrics")

	// CORS
	v.SetDefault("cors.allow_origins", []string{"*"})
}
