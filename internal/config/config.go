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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Queue     QueueConfig     `yaml:"queue" mapstructure:"queue"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Site      SiteConfig      `yaml:"site" mapstructure:"site"`
	Images    ImagesConfig    `yaml:"images" mapstructure:"images"`
	Email     EmailConfig     `yaml:"email" mapstructure:"email"`
	Call      CallConfig      `yaml:"call" mapstructure:"call"`
	Deploy    DeployConfig    `yaml:"deploy" mapstructure:"deploy"`
	Places    PlacesConfig    `yaml:"places" mapstructure:"places"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Monitor   MonitorConfig   `yaml:"monitor" mapstructure:"monitor"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// QueueConfig configures the stage work queues.
type QueueConfig struct {
	// Broker is "memory" (single process) or "amqp" (RabbitMQ).
	Broker string `yaml:"broker" mapstructure:"broker"`
	URL    string `yaml:"url" mapstructure:"url"`

	Concurrency      int `yaml:"concurrency" mapstructure:"concurrency"`
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`

	// StageConcurrency overrides Concurrency per stage name.
	StageConcurrency map[string]int `yaml:"stage_concurrency" mapstructure:"stage_concurrency"`
}

// ConcurrencyFor returns the worker count for a stage.
func (q QueueConfig) ConcurrencyFor(stage string) int {
	if n, ok := q.StageConcurrency[stage]; ok && n > 0 {
		return n
	}
	if q.Concurrency > 0 {
		return q.Concurrency
	}
	return 5
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// ProvidersConfig selects provider variants. Mode is "simulated" or
// "production"; Overrides flips a single capability (keys: listings, enrich,
// site, images, deploy, email, call, copy).
type ProvidersConfig struct {
	Mode      string            `yaml:"mode" mapstructure:"mode"`
	Overrides map[string]string `yaml:"overrides" mapstructure:"overrides"`
}

// ModeFor returns the effective mode for one capability.
func (p ProvidersConfig) ModeFor(capability string) string {
	if m, ok := p.Overrides[capability]; ok && m != "" {
		return m
	}
	if p.Mode != "" {
		return p.Mode
	}
	return "simulated"
}

// PipelineConfig configures stage behavior.
type PipelineConfig struct {
	CallDelayMins   int `yaml:"call_delay_mins" mapstructure:"call_delay_mins"`
	MaxCallAttempts int `yaml:"max_call_attempts" mapstructure:"max_call_attempts"`
	ScrapeFanout    int `yaml:"scrape_fanout" mapstructure:"scrape_fanout"`
}

// EnrichConfig configures the enrichment fetcher.
type EnrichConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
	MaxBodyKB   int     `yaml:"max_body_kb" mapstructure:"max_body_kb"`
}

// SiteConfig configures demo site generation.
type SiteConfig struct {
	ArtifactDir string `yaml:"artifact_dir" mapstructure:"artifact_dir"`
	Style       string `yaml:"style" mapstructure:"style"`
}

// ImagesConfig configures the image provider and pool.
type ImagesConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	PoolSize int    `yaml:"pool_size" mapstructure:"pool_size"`
}

// EmailConfig configures outbound email.
type EmailConfig struct {
	From     string `yaml:"from" mapstructure:"from"`
	SMTPHost string `yaml:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port" mapstructure:"smtp_port"`
	SMTPUser string `yaml:"smtp_user" mapstructure:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass" mapstructure:"smtp_pass"`
}

// CallConfig configures the outbound call provider.
type CallConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	CallbackURL string `yaml:"callback_url" mapstructure:"callback_url"`
}

// DeployConfig configures the static hosting provider.
type DeployConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PlacesConfig configures the business listings provider.
type PlacesConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig configures the AI copywriter.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// MonitorConfig configures the background funnel checker.
type MonitorConfig struct {
	CheckIntervalSecs   int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	WebhookURL          string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	DeadLetterThreshold int     `yaml:"dead_letter_threshold" mapstructure:"dead_letter_threshold"`
	ErrorRateThreshold  float64 `yaml:"error_rate_threshold" mapstructure:"error_rate_threshold"`
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
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "outreach.db")
	v.SetDefault("queue.broker", "memory")
	v.SetDefault("queue.concurrency", 5)
	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("queue.initial_backoff_ms", 3000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("providers.mode", "simulated")
	v.SetDefault("pipeline.call_delay_mins", 30)
	v.SetDefault("pipeline.max_call_attempts", 2)
	v.SetDefault("pipeline.scrape_fanout", 5)
	v.SetDefault("enrich.timeout_secs", 15)
	v.SetDefault("enrich.rate_per_sec", 2.0)
	v.SetDefault("enrich.burst", 4)
	v.SetDefault("enrich.max_body_kb", 1024)
	v.SetDefault("site.artifact_dir", "artifacts")
	v.SetDefault("site.style", "clean")
	v.SetDefault("images.pool_size", 32)
	v.SetDefault("email.from", "demos@outreach.local")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("monitor.check_interval_secs", 300)
	v.SetDefault("monitor.dead_letter_threshold", 1)
	v.SetDefault("monitor.error_rate_threshold", 0.25)
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
