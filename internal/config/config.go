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
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Anthropic    AnthropicConfig    `yaml:"anthropic" mapstructure:"anthropic"`
	AlphaVantage AlphaVantageConfig `yaml:"alphavantage" mapstructure:"alphavantage"`
	Yahoo        YahooConfig        `yaml:"yahoo" mapstructure:"yahoo"`
	NewsAPI      NewsAPIConfig      `yaml:"newsapi" mapstructure:"newsapi"`
	RSS          RSSConfig          `yaml:"rss" mapstructure:"rss"`
	Gather       GatherConfig       `yaml:"gather" mapstructure:"gather"`
	Processor    ProcessorConfig    `yaml:"processor" mapstructure:"processor"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings. An empty key disables the
// LLM paths; every stage then uses its deterministic fallback.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// AlphaVantageConfig holds Alpha Vantage API settings.
type AlphaVantageConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// YahooConfig holds Yahoo Finance chart settings.
type YahooConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// NewsAPIConfig holds NewsAPI.org settings.
type NewsAPIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// RSSConfig holds RSS headline feed settings.
type RSSConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	FeedURL string `yaml:"feed_url" mapstructure:"feed_url"`
}

// GatherConfig tunes the gather stages.
type GatherConfig struct {
	Concurrency    int `yaml:"concurrency" mapstructure:"concurrency"`
	MaxPricePoints int `yaml:"max_price_points" mapstructure:"max_price_points"`
	MaxArticles    int `yaml:"max_articles" mapstructure:"max_articles"`
}

// ProcessorConfig tunes the background job processor.
type ProcessorConfig struct {
	PollIntervalSecs int `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	Workers          int `yaml:"workers" mapstructure:"workers"`
	PollBatch        int `yaml:"poll_batch" mapstructure:"poll_batch"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "research.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("alphavantage.base_url", "https://www.alphavantage.co")
	v.SetDefault("yahoo.enabled", true)
	v.SetDefault("yahoo.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("newsapi.base_url", "https://newsapi.org")
	v.SetDefault("rss.enabled", true)
	v.SetDefault("rss.feed_url", "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US")
	v.SetDefault("gather.concurrency", 3)
	v.SetDefault("gather.max_price_points", 500)
	v.SetDefault("gather.max_articles", 50)
	v.SetDefault("processor.poll_interval_secs", 5)
	v.SetDefault("processor.workers", 2)
	v.SetDefault("processor.poll_batch", 50)

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

// Validate checks that the configuration is usable for the given mode.
// Modes: "run" (inline one-shot research), "serve" (HTTP API + processor).
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the sqlite driver")
		}
	default:
		problems = append(problems, "store.driver must be postgres or sqlite")
	}

	if c.Gather.Concurrency < 1 || c.Gather.Concurrency > 10 {
		problems = append(problems, "gather.concurrency must be between 1 and 10")
	}

	switch mode {
	case "run":
		// Nothing beyond the shared checks.
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Processor.Workers < 1 {
			problems = append(problems, "processor.workers must be >= 1")
		}
		if c.Processor.PollIntervalSecs < 1 {
			problems = append(problems, "processor.poll_interval_secs must be >= 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
