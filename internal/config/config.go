package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Classify   ClassifyConfig   `yaml:"classify" mapstructure:"classify"`
	Reclassify ReclassifyConfig `yaml:"reclassify" mapstructure:"reclassify"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ClassifyConfig configures the classification engine.
type ClassifyConfig struct {
	RulesFile string `yaml:"rules_file" mapstructure:"rules_file"`
	AsOf      string `yaml:"as_of" mapstructure:"as_of"` // RFC3339; pins "now"
}

// AsOfTime parses AsOf. The zero time means "use the wall clock".
func (c ClassifyConfig) AsOfTime() (time.Time, error) {
	if c.AsOf == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, c.AsOf)
	if err != nil {
		return time.Time{}, eris.Wrap(err, "config: parse classify.as_of")
	}
	return t, nil
}

// ReclassifyConfig configures batch reclassification.
type ReclassifyConfig struct {
	BatchSize           int     `yaml:"batch_size" mapstructure:"batch_size"`
	MaxPermitsPerSecond float64 `yaml:"max_permits_per_second" mapstructure:"max_permits_per_second"`
}

// MonitoringConfig configures run alerting.
type MonitoringConfig struct {
	WebhookURL         string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	ErrorRateThreshold float64 `yaml:"error_rate_threshold" mapstructure:"error_rate_threshold"`
	MinPermits         int     `yaml:"min_permits" mapstructure:"min_permits"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. An empty configFile
// looks for an optional config.yaml in the working directory; a named file
// must exist.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("PERMITS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("classify.rules_file", "")
	v.SetDefault("classify.as_of", "")
	v.SetDefault("reclassify.batch_size", 500)
	v.SetDefault("reclassify.max_permits_per_second", 0)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.error_rate_threshold", 0.05)
	v.SetDefault("monitoring.min_permits", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. Scope is one of "store"
// (any command touching the database), "reclassify" or "offline".
func (c *Config) Validate(scope string) error {
	var errs []string

	switch scope {
	case "offline":
	case "store", "reclassify":
		errs = append(errs, c.validateStore()...)
		if scope == "reclassify" {
			errs = append(errs, c.validateReclassify()...)
		}
	default:
		return eris.Errorf("config: unknown mode %q", scope)
	}

	if _, err := c.Classify.AsOfTime(); err != nil {
		errs = append(errs, "classify.as_of must be RFC3339")
	}
	if c.Monitoring.ErrorRateThreshold < 0 || c.Monitoring.ErrorRateThreshold > 1 {
		errs = append(errs, "monitoring.error_rate_threshold must be between 0 and 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "sqlite":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required (sqlite file path)")
		}
	default:
		errs = append(errs, "store.driver must be postgres or sqlite")
	}
	if c.Store.MinConns > c.Store.MaxConns && c.Store.MaxConns > 0 {
		errs = append(errs, "store.min_conns must not exceed store.max_conns")
	}
	return errs
}

func (c *Config) validateReclassify() []string {
	var errs []string
	if c.Reclassify.BatchSize < 1 || c.Reclassify.BatchSize > 10000 {
		errs = append(errs, "reclassify.batch_size must be between 1 and 10000")
	}
	if c.Reclassify.MaxPermitsPerSecond < 0 {
		errs = append(errs, "reclassify.max_permits_per_second must be >= 0")
	}
	return errs
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
