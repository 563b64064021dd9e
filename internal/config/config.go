package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Admin       AdminConfig
	Quota       QuotaConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Storage     StorageConfig
	Queue       QueueConfig
	Upstream    UpstreamConfig
	Uploader    UploaderConfig
	RateLimit   RateLimitConfig
	Logging     LoggingConfig
	Metrics     MetricsConfig
	Tracing     TracingConfig
	Maintenance MaintenanceConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// AdminConfig holds the bootstrap key material seeded at startup
type AdminConfig struct {
	BootstrapAdminKey    string
	BootstrapStandardKey string
	DemoKey              string
	EnableDemoKey        bool
}

// QuotaConfig holds key issuance defaults
type QuotaConfig struct {
	AdminDailyLimit    int
	StandardDailyLimit int
	DemoDailyLimit     int
	DefaultDailyLimit  int
	DefaultExpiryDays  int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	MetadataTTL time.Duration
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
	URLExpiry       time.Duration
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// UpstreamConfig holds the extraction API client configuration
type UpstreamConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// UploaderConfig holds background population configuration
type UploaderConfig struct {
	// Mode is one of "inline", "queue", or "off"
	Mode            string
	Workers         int
	DownloadTimeout time.Duration
}

// RateLimitConfig holds per-client abuse limits, separate from key quotas
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LoggingConfig holds log output configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// MetricsConfig holds Prometheus exposure configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// TracingConfig holds Jaeger configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	JaegerEndpoint string
}

// MaintenanceConfig holds background sweep configuration
type MaintenanceConfig struct {
	SweepInterval    time.Duration
	LogRetentionDays int
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("TUBEGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")

	// Admin bootstrap defaults; override these outside local development
	viper.SetDefault("admin.bootstrapAdminKey", "")
	viper.SetDefault("admin.bootstrapStandardKey", "")
	viper.SetDefault("admin.demoKey", "")
	viper.SetDefault("admin.enableDemoKey", false)

	// Quota defaults
	viper.SetDefault("quota.adminDailyLimit", 10000)
	viper.SetDefault("quota.standardDailyLimit", 5000)
	viper.SetDefault("quota.demoDailyLimit", 100)
	viper.SetDefault("quota.defaultDailyLimit", 100)
	viper.SetDefault("quota.defaultExpiryDays", 365)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "tubegate")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.metadataTTL", "1h")

	// Storage defaults
	viper.SetDefault("storage.enabled", true)
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accessKeyID", "minioadmin")
	viper.SetDefault("storage.secretAccessKey", "minioadmin")
	viper.SetDefault("storage.bucketName", "media")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.useSSL", false)
	viper.SetDefault("storage.urlExpiry", "1h")

	// Queue defaults
	viper.SetDefault("queue.enabled", false)
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.vhost", "/")

	// Upstream extraction API defaults
	viper.SetDefault("upstream.baseURL", "https://api.cobalt.tools")
	viper.SetDefault("upstream.apiKey", "")
	viper.SetDefault("upstream.timeout", "15s")

	// Uploader defaults
	viper.SetDefault("uploader.mode", "inline")
	viper.SetDefault("uploader.workers", 2)
	viper.SetDefault("uploader.downloadTimeout", "5m")

	// Rate limit defaults
	viper.SetDefault("ratelimit.requestsPerSecond", 10.0)
	viper.SetDefault("ratelimit.burst", 20)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.serviceName", "tubegate-api")
	viper.SetDefault("tracing.jaegerEndpoint", "localhost:6831")

	// Maintenance defaults
	viper.SetDefault("maintenance.sweepInterval", "1h")
	viper.SetDefault("maintenance.logRetentionDays", 30)
}
