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
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Scrape   ScrapeConfig   `yaml:"scrape" mapstructure:"scrape"`
	Schedule ScheduleConfig `yaml:"schedule" mapstructure:"schedule"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	SigningSecret string `yaml:"signing_secret" mapstructure:"signing_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours" mapstructure:"token_ttl_hours"`
}

// ScrapeConfig configures the scrape target and extraction selectors.
type ScrapeConfig struct {
	URL                 string `yaml:"url" mapstructure:"url"`
	FactSelector        string `yaml:"fact_selector" mapstructure:"fact_selector"`
	FigureSelector      string `yaml:"figure_selector" mapstructure:"figure_selector"`
	DescriptionSelector string `yaml:"description_selector" mapstructure:"description_selector"`
	QuoteSelector       string `yaml:"quote_selector" mapstructure:"quote_selector"`
	TimeoutSecs         int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent           string `yaml:"user_agent" mapstructure:"user_agent"`
}

// ScheduleConfig configures the daily scrape trigger.
type ScheduleConfig struct {
	At       string `yaml:"at" mapstructure:"at"` // wall-clock "HH:MM"
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
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
	v.SetEnvPrefix("PRICEBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. The empty-string entries register keys that only ever
	// arrive via environment or file; Unmarshal decodes known keys only,
	// so without a default an env-only value never reaches the struct.
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("auth.signing_secret", "")
	v.SetDefault("scrape.url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.token_ttl_hours", 72)
	v.SetDefault("scrape.fact_selector", "div.fact")
	v.SetDefault("scrape.figure_selector", "span.figure")
	v.SetDefault("scrape.description_selector", "span.description")
	v.SetDefault("scrape.quote_selector", "div.quote span")
	v.SetDefault("scrape.timeout_secs", 30)
	v.SetDefault("scrape.user_agent", "priceboard/1.0")
	v.SetDefault("schedule.at", "06:00")
	v.SetDefault("schedule.timezone", "Europe/Berlin")
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
