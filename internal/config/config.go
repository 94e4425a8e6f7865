package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Probe   ProbeConfig   `yaml:"probe" mapstructure:"probe"`
	Dedupe  DedupeConfig  `yaml:"dedupe" mapstructure:"dedupe"`
	Verify  VerifyConfig  `yaml:"verify" mapstructure:"verify"`
	Queue   QueueConfig   `yaml:"queue" mapstructure:"queue"`
	Pricing PricingConfig `yaml:"pricing" mapstructure:"pricing"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite | postgres | memory
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the admin/public HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AdminToken     string   `yaml:"admin_token" mapstructure:"admin_token"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// GeocodeConfig configures the geocoding collaborator.
type GeocodeConfig struct {
	GoogleAPIKey  string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	MaxRetries    int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// ProbeConfig configures the URL reachability probe.
type ProbeConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// DedupeConfig configures duplicate detection.
type DedupeConfig struct {
	NameSimilarityThreshold float64 `yaml:"name_similarity_threshold" mapstructure:"name_similarity_threshold"`
	MaxComparisons          int     `yaml:"max_comparisons" mapstructure:"max_comparisons"`
}

// VerifyConfig configures the decision engine's confidence bands.
type VerifyConfig struct {
	ApproveThreshold float64 `yaml:"approve_threshold" mapstructure:"approve_threshold"`
	RejectThreshold  float64 `yaml:"reject_threshold" mapstructure:"reject_threshold"`
}

// QueueConfig configures batch processing of pending candidates.
type QueueConfig struct {
	DefaultBatchSize int `yaml:"default_batch_size" mapstructure:"default_batch_size"`
	MaxBatchSize     int `yaml:"max_batch_size" mapstructure:"max_batch_size"`
}

// PricingConfig holds per-collaborator pricing rates for cost accounting.
type PricingConfig struct {
	GooglePerLookup float64 `yaml:"google_per_lookup" mapstructure:"google_per_lookup"`
	CensusPerLookup float64 `yaml:"census_per_lookup" mapstructure:"census_per_lookup"`
	ProbePerRequest float64 `yaml:"probe_per_request" mapstructure:"probe_per_request"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REENTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "reentry.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("geocode.rate_per_second", 10)
	v.SetDefault("geocode.max_retries", 2)
	v.SetDefault("probe.timeout_secs", 10)
	v.SetDefault("probe.user_agent", "reentry-map-verifier/1.0")
	v.SetDefault("dedupe.name_similarity_threshold", 0.85)
	v.SetDefault("dedupe.max_comparisons", 5000)
	v.SetDefault("verify.approve_threshold", 0.85)
	v.SetDefault("verify.reject_threshold", 0.40)
	v.SetDefault("queue.default_batch_size", 1)
	v.SetDefault("queue.max_batch_size", 50)
	v.SetDefault("pricing.google_per_lookup", 0.005)
	v.SetDefault("pricing.census_per_lookup", 0)
	v.SetDefault("pricing.probe_per_request", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
