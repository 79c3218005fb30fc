package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"atstailor/internal/keywords"
	"atstailor/internal/tailor"
)

// Config holds all application configuration
// Secret precedence order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (ATSTAILOR_SERVER_APIKEYS, etc.)
// 4. Default values - Lowest priority
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Tailor        TailorConfig        `mapstructure:"tailor"`
	Dictionary    DictionaryConfig    `mapstructure:"dictionary"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Storage       StorageConfig       `mapstructure:"storage"`
	History       HistoryConfig       `mapstructure:"history"`
	Queue         QueueConfig         `mapstructure:"queue"`
	Server        ServerConfig        `mapstructure:"server"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
	BatchConcurrency int      `mapstructure:"batchConcurrency"`
}

// TailorConfig holds the default tailoring options
type TailorConfig struct {
	MaxKeywords       int              `mapstructure:"maxKeywords"`
	MaxBulletsPerRole int              `mapstructure:"maxBulletsPerRole"`
	Targets           keywords.Targets `mapstructure:"targets"`
	TargetScore       int              `mapstructure:"targetScore"`
	MaxPasses         int              `mapstructure:"maxPasses"`
	AppendSkills      bool             `mapstructure:"appendSkills"`
	AppendSummary     bool             `mapstructure:"appendSummary"`
	Seed              uint64           `mapstructure:"seed"`
	BulletMarker      string           `mapstructure:"bulletMarker"`
}

// Options converts the configured defaults to engine options.
func (t TailorConfig) Options() tailor.Options {
	var targets *keywords.Targets
	if t.Targets != (keywords.Targets{}) {
		tt := t.Targets
		targets = &tt
	}
	return tailor.Options{
		MaxKeywords:       t.MaxKeywords,
		MaxBulletsPerRole: t.MaxBulletsPerRole,
		Targets:           targets,
		TargetScore:       t.TargetScore,
		MaxPasses:         t.MaxPasses,
		AppendSkills:      t.AppendSkills,
		AppendSummary:     t.AppendSummary,
		Seed:              t.Seed,
		BulletMarker:      t.BulletMarker,
	}.WithDefaults()
}

// DictionaryConfig points at an optional keyword dictionary file
type DictionaryConfig struct {
	Path          string        `mapstructure:"path"`
	Watch         bool          `mapstructure:"watch"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// CacheConfig holds keyword memo cache configuration
type CacheConfig struct {
	Enabled        bool                 `mapstructure:"enabled"`
	TTL            time.Duration        `mapstructure:"ttl"`
	MaxEntries     int                  `mapstructure:"maxEntries"`
	RedisURL       string               `mapstructure:"redisURL"`
	RedisPassword  string               `mapstructure:"redisPassword"`
	RedisTimeout   time.Duration        `mapstructure:"redisTimeout"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// StorageConfig holds S3-compatible object storage configuration
type StorageConfig struct {
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint"` // R2/MinIO endpoint, empty for AWS
	AccessKeyID     string        `mapstructure:"accessKeyID"`
	SecretAccessKey string        `mapstructure:"secretAccessKey"`
	UsePathStyle    bool          `mapstructure:"usePathStyle"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"maxRetries"`
}

// HistoryConfig holds run history configuration
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// QueueConfig holds AMQP worker configuration
type QueueConfig struct {
	URL        string `mapstructure:"url"`
	Queue      string `mapstructure:"queue"`
	Exchange   string `mapstructure:"exchange"`
	Workers    int    `mapstructure:"workers"`
	Prefetch   int    `mapstructure:"prefetch"`
	MaxRetries int    `mapstructure:"maxRetries"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout     time.Duration `mapstructure:"idleTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	MaxBodyBytes    int64         `mapstructure:"maxBodyBytes"`

	// TLS Configuration
	TLS TLSConfig `mapstructure:"tls"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"` // Valid API keys for authentication

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode     string `mapstructure:"mode"`     // TLS mode: "disabled", "server", "mutual"
	CertFile string `mapstructure:"certFile"` // Server certificate file (PEM)
	KeyFile  string `mapstructure:"keyFile"`  // Server private key file (PEM)
	CAFile   string `mapstructure:"caFile"`   // CA certificate file for client cert verification (PEM, required for mutual mode)

	// Certificate content (used when loaded from Vault instead of files)
	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string   `mapstructure:"minVersion"`       // "1.2", "1.3"
	CipherSuites     []string `mapstructure:"cipherSuites"`     // Allowed cipher suites (optional)
	ClientAuthPolicy string   `mapstructure:"clientAuthPolicy"` // "require", "request", "verify"
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requestsPerMin"`
	BurstCapacity  int  `mapstructure:"burstCapacity"`
	ByIP           bool `mapstructure:"byIP"`
	ByAPIKey       bool `mapstructure:"byAPIKey"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool             `mapstructure:"enabled"`
	ServiceName     string           `mapstructure:"serviceName"`
	ServiceVersion  string           `mapstructure:"serviceVersion"`
	ServiceInstance string           `mapstructure:"serviceInstance"`
	SampleRate      float64          `mapstructure:"sampleRate"`
	Tracing         TracingConfig    `mapstructure:"tracing"`
	Metrics         MetricsConfig    `mapstructure:"metrics"`
	Console         ConsoleConfig    `mapstructure:"console"`
	Prometheus      PrometheusConfig `mapstructure:"prometheus"`
	OTLP            OTLPConfig       `mapstructure:"otlp"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	return load(viper.New(), true)
}

func load(v *viper.Viper, searchFiles bool) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix("ATSTAILOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Println("[CONFIG] Configured environment variable handling with prefix 'ATSTAILOR'")

	configFileUsed := ""
	if searchFiles {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/atstailor/")
		v.AddConfigPath("$HOME/.atstailor")
		v.AddConfigPath(".")
		log.Println("[CONFIG] Configured config file search paths: /etc/atstailor/, $HOME/.atstailor, .")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Println("[CONFIG] No config file found, using defaults and environment variables")
		} else {
			configFileUsed = v.ConfigFileUsed()
			log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	log.Println("[CONFIG] Successfully unmarshaled configuration")

	config.applyFallbacks()
	log.Println("[CONFIG] Applied configuration fallbacks and environment variable overrides")

	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// LoadFile loads configuration from an explicit YAML file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	log.Printf("[CONFIG] Successfully loaded config file: %s", path)
	return load(v, false)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.Tailor.Options().Validate(); err != nil {
		return fmt.Errorf("tailor options: %w", err)
	}

	if c.Cache.Enabled && c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache maxEntries must be positive")
	}

	if c.Queue.Workers < 0 {
		return fmt.Errorf("queue workers must not be negative")
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

// Global configuration instance
var GlobalConfig *Config

// InitConfig initializes the global configuration
func InitConfig() error {
	config, err := LoadConfig()
	if err != nil {
		return err
	}
	GlobalConfig = config
	return nil
}
