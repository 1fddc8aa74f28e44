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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Apify      ApifyConfig      `yaml:"apify" mapstructure:"apify"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Apollo     ApolloConfig     `yaml:"apollo" mapstructure:"apollo"`
	Location   LocationConfig   `yaml:"location" mapstructure:"location"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	OrgFilter  OrgFilterConfig  `yaml:"org_filter" mapstructure:"org_filter"`
	Contacts   ContactsConfig   `yaml:"contacts" mapstructure:"contacts"`
	Crawl      CrawlConfig      `yaml:"crawl" mapstructure:"crawl"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ApifyConfig holds the directory-search actor settings.
type ApifyConfig struct {
	Token       string `yaml:"token" mapstructure:"token"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	ActorID     string `yaml:"actor_id" mapstructure:"actor_id"`
	MaxPlaces   int    `yaml:"max_places" mapstructure:"max_places"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PerplexityConfig holds Perplexity API settings for area listing.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings for classification and
// extraction calls.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ApolloConfig holds the people-search and enrichment service settings.
type ApolloConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// LocationConfig selects the broad/specific location classifier strategy.
// "static" uses the embedded metro/region table; "llm" delegates to the
// classification service. Both implement the same capability.
type LocationConfig struct {
	Classifier string `yaml:"classifier" mapstructure:"classifier"`
}

// ScrapeConfig configures the directory scraper fan-out.
type ScrapeConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// OrgFilterConfig configures the large-organization filter.
type OrgFilterConfig struct {
	BatchSize   int `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ContactsConfig configures contact resolution and enrichment batching.
type ContactsConfig struct {
	DomainBatchSize int `yaml:"domain_batch_size" mapstructure:"domain_batch_size"`
	EnrichBatchSize int `yaml:"enrich_batch_size" mapstructure:"enrich_batch_size"`
	Concurrency     int `yaml:"concurrency" mapstructure:"concurrency"`
}

// CrawlConfig configures the website email crawler.
type CrawlConfig struct {
	MaxPages        int `yaml:"max_pages" mapstructure:"max_pages"`
	Concurrency     int `yaml:"concurrency" mapstructure:"concurrency"`
	FetchTimeoutSec int `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
}

// ReportConfig configures report artifact generation.
type ReportConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Country string `yaml:"country" mapstructure:"country"`
}

// PipelineConfig configures run-level behavior.
type PipelineConfig struct {
	MaxLeads int `yaml:"max_leads" mapstructure:"max_leads"`
}

// ServerConfig configures the HTTP trigger surface.
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
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadgen.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 3001)
	// Secrets default to empty so AutomaticEnv can populate them.
	v.SetDefault("apify.token", "")
	v.SetDefault("perplexity.key", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("apollo.key", "")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.actor_id", "nwua9Gu5YrADL7ZDj")
	v.SetDefault("apify.max_places", 50)
	v.SetDefault("apify.timeout_secs", 120)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("apollo.base_url", "https://api.apollo.io")
	v.SetDefault("location.classifier", "static")
	v.SetDefault("scrape.concurrency", 7)
	v.SetDefault("org_filter.batch_size", 30)
	v.SetDefault("org_filter.concurrency", 5)
	v.SetDefault("contacts.domain_batch_size", 10)
	v.SetDefault("contacts.enrich_batch_size", 10)
	v.SetDefault("contacts.concurrency", 5)
	v.SetDefault("crawl.max_pages", 40)
	v.SetDefault("crawl.concurrency", 5)
	v.SetDefault("crawl.fetch_timeout_secs", 10)
	v.SetDefault("report.dir", "reports")
	v.SetDefault("report.country", "Australia")
	v.SetDefault("pipeline.max_leads", 1000)

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
