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
	Propstream PropstreamConfig `yaml:"propstream" mapstructure:"propstream"`
	Gate       GateConfig       `yaml:"gate" mapstructure:"gate"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// PropstreamConfig holds upstream API credentials and transport knobs.
type PropstreamConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	AuthToken   string `yaml:"auth_token" mapstructure:"auth_token"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GateConfig configures request pacing and quota accounting.
type GateConfig struct {
	MinDelaySecs float64 `yaml:"min_delay" mapstructure:"min_delay"`
	MaxDelaySecs float64 `yaml:"max_delay" mapstructure:"max_delay"`
	HourlyLimit  int     `yaml:"hourly_limit" mapstructure:"hourly_limit"`
	DailyLimit   int     `yaml:"daily_limit" mapstructure:"daily_limit"`
	LedgerPath   string  `yaml:"ledger_path" mapstructure:"ledger_path"`
}

// MinDelay returns the minimum pacing delay as a duration.
func (g GateConfig) MinDelay() time.Duration {
	return time.Duration(g.MinDelaySecs * float64(time.Second))
}

// MaxDelay returns the maximum pacing delay as a duration.
func (g GateConfig) MaxDelay() time.Duration {
	return time.Duration(g.MaxDelaySecs * float64(time.Second))
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP front-end.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// ExportConfig configures file export defaults.
type ExportConfig struct {
	Dir        string `yaml:"dir" mapstructure:"dir"`
	IncludeRaw bool   `yaml:"include_raw" mapstructure:"include_raw"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns the built-in configuration, before any file or
// environment overrides.
func Default() Config {
	return Config{
		Propstream: PropstreamConfig{
			BaseURL:     "https://app.propstream.com",
			MaxRetries:  3,
			TimeoutSecs: 30,
		},
		Gate: GateConfig{
			MinDelaySecs: 0.5,
			MaxDelaySecs: 3.0,
			HourlyLimit:  100,
			DailyLimit:   500,
			LedgerPath:   "data/.request_log",
		},
		Store: StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: "data/propdata.db",
		},
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Export: ExportConfig{Dir: "data/exports"},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads configuration from file and environment. Environment
// variables (prefix PROPDATA) take precedence over the config file.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROPDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	def := Default()
	v.SetDefault("propstream.base_url", def.Propstream.BaseURL)
	v.SetDefault("propstream.max_retries", def.Propstream.MaxRetries)
	v.SetDefault("propstream.timeout_secs", def.Propstream.TimeoutSecs)
	v.SetDefault("gate.min_delay", def.Gate.MinDelaySecs)
	v.SetDefault("gate.max_delay", def.Gate.MaxDelaySecs)
	v.SetDefault("gate.hourly_limit", def.Gate.HourlyLimit)
	v.SetDefault("gate.daily_limit", def.Gate.DailyLimit)
	v.SetDefault("gate.ledger_path", def.Gate.LedgerPath)
	v.SetDefault("store.driver", def.Store.Driver)
	v.SetDefault("store.database_url", def.Store.DatabaseURL)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.allowed_origins", def.Server.AllowedOrigins)
	v.SetDefault("export.dir", def.Export.Dir)
	v.SetDefault("export.include_raw", def.Export.IncludeRaw)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

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
