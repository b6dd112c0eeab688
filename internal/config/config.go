// Package config provides configuration management for the JMRH portal.
// Configuration can be loaded from YAML files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Events    EventsConfig    `mapstructure:"events"`
	Store     StoreConfig     `mapstructure:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
}

// Addr returns the listen address in host:port format.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds snapshot persistence settings.
// Supports SQLite, PostgreSQL, Redis and in-memory backends.
type DatabaseConfig struct {
	// Driver specifies the backend: "sqlite", "postgres", "redis" or "memory".
	Driver string `mapstructure:"driver"`

	// Snapshot is the name under which the portal state is stored.
	Snapshot string `mapstructure:"snapshot"`

	// PostgreSQL settings (used when Driver is "postgres")
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`

	// SQLite settings (used when Driver is "sqlite")
	Path            string `mapstructure:"path"`             // Path to SQLite database file
	JournalMode     string `mapstructure:"journal_mode"`     // WAL, DELETE, TRUNCATE, etc.
	BusyTimeout     int    `mapstructure:"busy_timeout"`     // Milliseconds to wait for locks
	SynchronousMode string `mapstructure:"synchronous_mode"` // NORMAL, FULL, OFF
}

// DSN returns the PostgreSQL connection string.
// Only valid when Driver is "postgres".
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// IsEmbedded returns true if using an embedded database (SQLite).
func (c DatabaseConfig) IsEmbedded() bool {
	return c.Driver == "sqlite"
}

// RedisConfig holds Redis connection settings.
// Redis backs the "redis" snapshot driver and the distributed locker.
type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Enabled     bool          `mapstructure:"enabled"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
}

// Addr returns the Redis address in host:port format.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig holds manuscript object storage settings.
type StorageConfig struct {
	S3 S3StorageConfig `mapstructure:"s3"`

	// URLExpiration is the lifetime of presigned download URLs.
	URLExpiration time.Duration `mapstructure:"url_expiration"`

	// UploadExpiration is the lifetime of presigned upload URLs.
	UploadExpiration time.Duration `mapstructure:"upload_expiration"`
}

// S3StorageConfig holds S3-compatible endpoint settings.
type S3StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// Enabled returns true when enough is configured to presign URLs.
func (c S3StorageConfig) Enabled() bool {
	return c.Bucket != ""
}

// AuthConfig holds session and account settings.
type AuthConfig struct {
	// SessionSecret signs session cookies. Generated at startup when empty,
	// which logs everyone out on restart.
	SessionSecret string `mapstructure:"session_secret"`

	// SessionTTL is the lifetime of a session cookie.
	SessionTTL time.Duration `mapstructure:"session_ttl"`

	// CookieSecure sets the Secure attribute on the session cookie.
	CookieSecure bool `mapstructure:"cookie_secure"`

	// BcryptCost is the cost used when hashing passwords.
	BcryptCost int `mapstructure:"bcrypt_cost"`

	// Admin is the account seeded on startup when no admin exists.
	Admin AdminSeedConfig `mapstructure:"admin"`
}

// AdminSeedConfig describes the seeded administrator.
type AdminSeedConfig struct {
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// LifecycleConfig holds review state machine settings.
type LifecycleConfig struct {
	// Strict rejects transitions missing from the lifecycle table instead of
	// applying and flagging them.
	Strict bool `mapstructure:"strict"`
}

// EventsConfig holds domain event bus settings.
type EventsConfig struct {
	// Driver is "memory" (in-process) or "kafka".
	Driver      string   `mapstructure:"driver"`
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// StoreConfig holds session store settings.
type StoreConfig struct {
	// RefreshInterval reloads the snapshot periodically. Zero disables it.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled determines if metrics collection is active.
	Enabled bool `mapstructure:"enabled"`

	// Path is the URL path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values.
// Environment variables are prefixed with JMRH_ and use _ as separator.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Environment variable configuration
	v.SetEnvPrefix("JMRH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file configuration
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/jmrh")
	}

	// Read config file (optional - environment variables can be used instead)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_size", 1024*1024) // 1MB of form data

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.snapshot", "portal")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "jmrh")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "jmrh")
	v.SetDefault("database.ssl_mode", "prefer")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
	// SQLite defaults
	v.SetDefault("database.path", "./data/jmrh.db")
	v.SetDefault("database.journal_mode", "WAL")
	v.SetDefault("database.busy_timeout", 5000)
	v.SetDefault("database.synchronous_mode", "NORMAL")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.key_prefix", "jmrh:")

	// Storage defaults
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.use_path_style", true)
	v.SetDefault("storage.url_expiration", time.Hour)
	v.SetDefault("storage.upload_expiration", 15*time.Minute)

	// Auth defaults
	v.SetDefault("auth.session_secret", "")
	v.SetDefault("auth.session_ttl", 24*time.Hour)
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.admin.name", "Editor in Chief")
	v.SetDefault("auth.admin.email", "")
	v.SetDefault("auth.admin.password", "")

	// Lifecycle defaults
	v.SetDefault("lifecycle.strict", false)

	// Events defaults
	v.SetDefault("events.driver", "memory")
	v.SetDefault("events.brokers", []string{"localhost:9092"})
	v.SetDefault("events.topic_prefix", "jmrh.")

	// Store defaults
	v.SetDefault("store.refresh_interval", time.Duration(0))

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks the configuration for required values and valid ranges.
func (c *Config) Validate() error {
	// Validate server configuration
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	// Validate database configuration
	validDrivers := map[string]bool{"postgres": true, "sqlite": true, "redis": true, "memory": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, redis, memory")
	}
	if c.Database.Snapshot == "" {
		return fmt.Errorf("database.snapshot is required")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required for postgres driver")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required for postgres driver")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database.database is required for postgres driver")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite driver")
		}
	case "redis":
		if c.Redis.Host == "" {
			return fmt.Errorf("redis.host is required for redis driver")
		}
	}

	// Validate storage configuration
	if c.Storage.URLExpiration <= 0 {
		return fmt.Errorf("storage.url_expiration must be positive")
	}
	if c.Storage.S3.Enabled() && c.Storage.S3.Region == "" {
		return fmt.Errorf("storage.s3.region is required when storage.s3.bucket is set")
	}

	// Validate auth configuration
	if c.Auth.SessionSecret != "" && len(c.Auth.SessionSecret) < 32 {
		return fmt.Errorf("auth.session_secret must be at least 32 characters")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}
	if (c.Auth.Admin.Email == "") != (c.Auth.Admin.Password == "") {
		return fmt.Errorf("auth.admin.email and auth.admin.password must be set together")
	}

	// Validate events configuration
	switch c.Events.Driver {
	case "memory":
	case "kafka":
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("events.brokers is required for kafka driver")
		}
	default:
		return fmt.Errorf("events.driver must be 'memory' or 'kafka'")
	}

	if c.Store.RefreshInterval < 0 {
		return fmt.Errorf("store.refresh_interval must not be negative")
	}

	// Validate logging configuration
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, fatal, panic")
	}

	return nil
}

// MustLoad loads configuration or panics on error.
// Useful for main function initialization.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
