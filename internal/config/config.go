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
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Decay    DecayConfig    `yaml:"decay" mapstructure:"decay"`
	Review   ReviewConfig   `yaml:"review" mapstructure:"review"`
	Forces   ForcesConfig   `yaml:"forces" mapstructure:"forces"`
	Feedback FeedbackConfig `yaml:"feedback" mapstructure:"feedback"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
}

// StoreConfig configures the opportunity record store backend.
type StoreConfig struct {
	Driver      string  `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string  `yaml:"database_url" mapstructure:"database_url"`
	WriteRPS    float64 `yaml:"write_rps" mapstructure:"write_rps"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "json" or "console"
}

// DecayConfig holds the two threshold ladders for relationship decay,
// in days since last contact. Each band is inclusive-lower.
type DecayConfig struct {
	PipelineWarmingDays int `yaml:"pipeline_warming_days" mapstructure:"pipeline_warming_days"`
	PipelineAtRiskDays  int `yaml:"pipeline_at_risk_days" mapstructure:"pipeline_at_risk_days"`
	PipelineColdDays    int `yaml:"pipeline_cold_days" mapstructure:"pipeline_cold_days"`
	ClientWarmingDays   int `yaml:"client_warming_days" mapstructure:"client_warming_days"`
	ClientAtRiskDays    int `yaml:"client_at_risk_days" mapstructure:"client_at_risk_days"`
	ClientColdDays      int `yaml:"client_cold_days" mapstructure:"client_cold_days"`
}

// ReviewConfig configures the interactive review session.
type ReviewConfig struct {
	UndoWindowSeconds int    `yaml:"undo_window_seconds" mapstructure:"undo_window_seconds"`
	DefaultFilter     string `yaml:"default_filter" mapstructure:"default_filter"`
}

// ForcesConfig configures force alias table loading.
type ForcesConfig struct {
	TablePath string `yaml:"table_path" mapstructure:"table_path"`
}

// FeedbackConfig configures the classification-feedback webhook.
type FeedbackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// Load reads configuration from config.yaml (optional) and
// FORCE_PIPELINE_* environment variables, applying defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FORCE_PIPELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "force-pipeline.db")
	v.SetDefault("store.write_rps", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("decay.pipeline_warming_days", 8)
	v.SetDefault("decay.pipeline_at_risk_days", 15)
	v.SetDefault("decay.pipeline_cold_days", 30)
	v.SetDefault("decay.client_warming_days", 31)
	v.SetDefault("decay.client_at_risk_days", 61)
	v.SetDefault("decay.client_cold_days", 90)
	v.SetDefault("review.undo_window_seconds", 30)
	v.SetDefault("review.default_filter", "ready")
	v.SetDefault("server.port", 8080)

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
