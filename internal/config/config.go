// Package config provides configuration management.
package config

import (
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"timbercalc/internal/errors"
	"timbercalc/internal/logging"
)

// EnvPrefix is the prefix for environment overrides (TIMBERCALC_STORAGE_BACKEND, ...)
const EnvPrefix = "TIMBERCALC"

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version" yaml:"version" mapstructure:"version"`

	// Pricing contains price-table limits and currency display
	Pricing PricingConfig `json:"pricing" yaml:"pricing" mapstructure:"pricing"`

	// Storage selects and configures the key-value backend
	Storage StorageConfig `json:"storage" yaml:"storage" mapstructure:"storage"`

	// Export contains bill and price-list export settings
	Export ExportConfig `json:"export" yaml:"export" mapstructure:"export"`

	// Server contains HTTP API settings
	Server ServerConfig `json:"server" yaml:"server" mapstructure:"server"`

	// Events selects the event publisher
	Events EventsConfig `json:"events" yaml:"events" mapstructure:"events"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// PricingConfig contains pricing-related settings
type PricingConfig struct {
	// MaxGirth is the largest allowed end of the last girth range (inches)
	MaxGirth float64 `json:"max_girth" yaml:"max_girth" mapstructure:"max_girth"`

	// MaxLength is the largest allowed catalog length (feet)
	MaxLength float64 `json:"max_length" yaml:"max_length" mapstructure:"max_length"`

	// Currency is the ISO currency code
	Currency string `json:"currency" yaml:"currency" mapstructure:"currency"`

	// CurrencyLabel is printed before money amounts in bills
	CurrencyLabel string `json:"currency_label" yaml:"currency_label" mapstructure:"currency_label"`
}

// StorageConfig contains storage backend settings
type StorageConfig struct {
	// Backend is one of file, memory, redis, postgres
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Path is the file backend document path
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Redis configures the redis backend
	Redis RedisConfig `json:"redis" yaml:"redis" mapstructure:"redis"`

	// Postgres configures the postgres backend
	Postgres PostgresConfig `json:"postgres" yaml:"postgres" mapstructure:"postgres"`
}

// RedisConfig contains redis connection settings
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr" mapstructure:"addr"`
	Password string `json:"password" yaml:"password" mapstructure:"password"`
	DB       int    `json:"db" yaml:"db" mapstructure:"db"`
	Prefix   string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
}

// PostgresConfig contains postgres connection settings
type PostgresConfig struct {
	DSN   string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
	Table string `json:"table" yaml:"table" mapstructure:"table"`
}

// ExportConfig contains export-related settings
type ExportConfig struct {
	// Directory receives generated bills
	Directory string `json:"directory" yaml:"directory" mapstructure:"directory"`

	// PriceListDirectory receives exported price lists
	PriceListDirectory string `json:"price_list_directory" yaml:"price_list_directory" mapstructure:"price_list_directory"`

	// DefaultFormat is pdf or xlsx
	DefaultFormat string `json:"default_format" yaml:"default_format" mapstructure:"default_format"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	// Addr is the listen address
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// Passcode unlocks price-table editing. Empty disables editing.
	Passcode string `json:"passcode" yaml:"passcode" mapstructure:"passcode"`

	// JWTSecret signs admin tokens
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret" mapstructure:"jwt_secret"`

	// TokenTTLMinutes is the admin token lifetime
	TokenTTLMinutes int `json:"token_ttl_minutes" yaml:"token_ttl_minutes" mapstructure:"token_ttl_minutes"`
}

// EventsConfig contains event publishing settings
type EventsConfig struct {
	// Backend is one of none, log, kafka, webhook
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Brokers are kafka bootstrap addresses
	Brokers []string `json:"brokers" yaml:"brokers" mapstructure:"brokers"`

	// Topic is the kafka topic
	Topic string `json:"topic" yaml:"topic" mapstructure:"topic"`

	// Webhook configures HTTP delivery
	Webhook WebhookConfig `json:"webhook" yaml:"webhook" mapstructure:"webhook"`
}

// WebhookConfig configures the webhook event backend
type WebhookConfig struct {
	// URL receives a POST per event
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// Provider shapes the body: custom (the event as JSON) or slack
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Secret signs the body with HMAC-SHA256 in X-Signature
	Secret string `json:"secret" yaml:"secret" mapstructure:"secret"`

	// TimeoutSeconds bounds one delivery attempt
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds" mapstructure:"timeout_seconds"`

	// RetryCount is the number of retries after the first attempt
	RetryCount int `json:"retry_count" yaml:"retry_count" mapstructure:"retry_count"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".timbercalc")

	return &Config{
		Version: "1.0",
		Pricing: PricingConfig{
			MaxGirth:      100.0,
			MaxLength:     40.0,
			Currency:      "INR",
			CurrencyLabel: "Rs.",
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    filepath.Join(dataDir, "prefs.json"),
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "timbercalc:",
			},
			Postgres: PostgresConfig{
				Table: "kv_store",
			},
		},
		Export: ExportConfig{
			Directory:          filepath.Join(dataDir, "WoodBills"),
			PriceListDirectory: filepath.Join(dataDir, "WoodCalculator"),
			DefaultFormat:      "pdf",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			Passcode:        "7898",
			TokenTTLMinutes: 30,
		},
		Events: EventsConfig{
			Backend: "log",
			Topic:   "timbercalc.events",
			Webhook: WebhookConfig{
				Provider:       "custom",
				TimeoutSeconds: 10,
				RetryCount:     2,
			},
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a JSON or YAML file, then applies
// TIMBERCALC_* environment overrides. A missing file yields defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	if err := setDefaults(v, Default()); err != nil {
		return nil, errors.Config("apply defaults", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) && !stderrors.Is(err, fs.ErrNotExist) {
				return nil, errors.Config("read config "+path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Config("decode config", err)
	}
	return cfg, nil
}

// setDefaults registers every key of the default config with viper so that
// AutomaticEnv can override keys that are absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return err
	}
	walkDefaults(v, "", tree)
	return nil
}

func walkDefaults(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]interface{}); ok {
			walkDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Save saves configuration to a file. YAML is used for .yaml/.yml paths,
// indented JSON otherwise.
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
