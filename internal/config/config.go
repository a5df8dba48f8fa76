package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/parkops/pricingservice/internal/pricing"
)

// Config holds all configuration for the pricing service
type Config struct {
	AppName   string          `mapstructure:"app_name"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Log       LogConfig       `mapstructure:"log"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MetricsConfig holds Prometheus metrics server configuration
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// PostgresConfig holds PostgreSQL configuration. An empty DSN disables Postgres.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// KafkaConfig holds event publishing configuration
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SamplingRatio  float64 `mapstructure:"sampling_ratio"`
	Environment    string  `mapstructure:"environment"`
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Window      time.Duration `mapstructure:"window"`
	MaxRequests int           `mapstructure:"max_requests"`
}

// PricingConfig holds pricing engine settings
type PricingConfig struct {
	TaxRate   float64 `mapstructure:"tax_rate"`
	PeakStart string  `mapstructure:"peak_start"`
	PeakEnd   string  `mapstructure:"peak_end"`
	// CouponStore selects the usage counter backend: memory, redis or postgres.
	CouponStore string `mapstructure:"coupon_store"`
	// CouponCacheTTL bounds Redis caching of Postgres coupon definitions. Zero disables the cache.
	CouponCacheTTL time.Duration `mapstructure:"coupon_cache_ttl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() (*Config, error) {
	return unmarshal(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "pricing-service")
	v.SetDefault("http.address", ":8080")
	v.SetDefault("http.read_timeout", 5*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("metrics.address", ":9090")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "parking.pricing")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.sampling_ratio", 1.0)
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.max_requests", 600)
	v.SetDefault("pricing.tax_rate", 8.0)
	v.SetDefault("pricing.peak_start", "07:00")
	v.SetDefault("pricing.peak_end", "10:00")
	v.SetDefault("pricing.coupon_store", "memory")
	v.SetDefault("pricing.coupon_cache_ttl", 2*time.Minute)
	v.SetDefault("log.level", "info")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.AppName == "" {
		return fmt.Errorf("app_name is required")
	}
	if c.HTTP.Address == "" {
		return fmt.Errorf("http.address is required")
	}
	if c.Pricing.TaxRate < 0 || c.Pricing.TaxRate > 100 {
		return fmt.Errorf("pricing.tax_rate must be between 0 and 100")
	}
	if _, err := c.Pricing.PeakRange(); err != nil {
		return err
	}
	switch c.Pricing.CouponStore {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when pricing.coupon_store is redis")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when pricing.coupon_store is postgres")
		}
	default:
		return fmt.Errorf("unsupported pricing.coupon_store: %s", c.Pricing.CouponStore)
	}
	if c.Postgres.DSN != "" && c.Postgres.MaxConns <= 0 {
		return fmt.Errorf("postgres.max_conns must be greater than 0")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	if c.RateLimit.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when ratelimit is enabled")
		}
		if c.RateLimit.Window <= 0 || c.RateLimit.MaxRequests <= 0 {
			return fmt.Errorf("ratelimit.window and ratelimit.max_requests must be greater than 0")
		}
	}
	return nil
}

// PeakRange parses the default peak range used by peak-only coupons
func (p PricingConfig) PeakRange() (pricing.TimeRange, error) {
	start, err := pricing.ParseTimeOfDay(p.PeakStart)
	if err != nil {
		return pricing.TimeRange{}, fmt.Errorf("pricing.peak_start: %w", err)
	}
	end, err := pricing.ParseTimeOfDay(p.PeakEnd)
	if err != nil {
		return pricing.TimeRange{}, fmt.Errorf("pricing.peak_end: %w", err)
	}
	if start == end {
		return pricing.TimeRange{}, fmt.Errorf("pricing.peak_end must differ from pricing.peak_start")
	}
	return pricing.TimeRange{Start: start, End: end}, nil
}
