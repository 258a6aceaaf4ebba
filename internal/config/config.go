package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/meetingintel/internal/confidence"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig       `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig      `yaml:"openai" mapstructure:"openai"`
	Generation GenerationConfig  `yaml:"generation" mapstructure:"generation"`
	Jina       JinaConfig        `yaml:"jina" mapstructure:"jina"`
	Brave      BraveConfig       `yaml:"brave" mapstructure:"brave"`
	Firecrawl  FirecrawlConfig   `yaml:"firecrawl" mapstructure:"firecrawl"`
	GitHub     GitHubConfig      `yaml:"github" mapstructure:"github"`
	Search     SearchConfig      `yaml:"search" mapstructure:"search"`
	Crawl      CrawlConfig       `yaml:"crawl" mapstructure:"crawl"`
	Adapters   AdaptersConfig    `yaml:"adapters" mapstructure:"adapters"`
	Fusion     FusionConfig      `yaml:"fusion" mapstructure:"fusion"`
	Confidence confidence.Policy `yaml:"confidence" mapstructure:"confidence"`
	Guard      GuardConfig       `yaml:"guard" mapstructure:"guard"`
	Cache      CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Server     ServerConfig      `yaml:"server" mapstructure:"server"`
	Batch      BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Monitoring MonitoringConfig  `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run log backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Model      string `yaml:"model" mapstructure:"model"`
	MaxRetries int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// OpenAIConfig holds settings for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Model    string `yaml:"model" mapstructure:"model"`
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// GenerationConfig selects the provider and bounds each call.
type GenerationConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`

	RetryAttempts         int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryInitialBackoffMs int     `yaml:"retry_initial_backoff_ms" mapstructure:"retry_initial_backoff_ms"`
	RetryMaxBackoffMs     int     `yaml:"retry_max_backoff_ms" mapstructure:"retry_max_backoff_ms"`
	RetryMultiplier       float64 `yaml:"retry_multiplier" mapstructure:"retry_multiplier"`
	RetryJitter           float64 `yaml:"retry_jitter" mapstructure:"retry_jitter"`
}

// JinaConfig holds Jina reader and search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// BraveConfig holds Brave search settings.
type BraveConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Country string `yaml:"country" mapstructure:"country"`
}

// FirecrawlConfig holds Firecrawl API settings (fallback only).
type FirecrawlConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GitHubConfig holds code host API settings. The token is optional.
type GitHubConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SearchConfig orders search providers and rate limits them.
type SearchConfig struct {
	Providers     []string `yaml:"providers" mapstructure:"providers"`
	RatePerSecond float64  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst         int      `yaml:"burst" mapstructure:"burst"`
	ResultLimit   int      `yaml:"result_limit" mapstructure:"result_limit"`
}

// CrawlConfig configures company site fetching.
type CrawlConfig struct {
	Paths        []string `yaml:"paths" mapstructure:"paths"`
	Concurrency  int      `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs  int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent    string   `yaml:"user_agent" mapstructure:"user_agent"`
	PerHostRate  float64  `yaml:"per_host_rate" mapstructure:"per_host_rate"`
	PerHostBurst int      `yaml:"per_host_burst" mapstructure:"per_host_burst"`
	ExcludePaths []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// AdaptersConfig bounds the evidence fan-out.
type AdaptersConfig struct {
	TimeoutSecs      int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxItems         int      `yaml:"max_items" mapstructure:"max_items"`
	Disabled         []string `yaml:"disabled" mapstructure:"disabled"`
	BreakerThreshold int      `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int      `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// FusionConfig points at an optional weight policy file. Empty uses the
// embedded policy.
type FusionConfig struct {
	PolicyFile string `yaml:"policy_file" mapstructure:"policy_file"`
}

// GuardConfig tunes guarded generation requests.
type GuardConfig struct {
	JSONMode bool `yaml:"json_mode" mapstructure:"json_mode"`
}

// CacheConfig selects the brief cache backend.
type CacheConfig struct {
	Backend    string `yaml:"backend" mapstructure:"backend"`
	TTLSecs    int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
	MaxEntries int    `yaml:"max_entries" mapstructure:"max_entries"`
	RedisURL   string `yaml:"redis_url" mapstructure:"redis_url"`
	KeyPrefix  string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port                int      `yaml:"port" mapstructure:"port"`
	RequestTimeoutSecs  int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
	AllowedOrigins      []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	APIKeys             []string `yaml:"api_keys" mapstructure:"api_keys"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// MonitoringConfig configures run log health checks.
type MonitoringConfig struct {
	Enabled                 bool    `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs       int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours     int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	MinRuns                 int     `yaml:"min_runs" mapstructure:"min_runs"`
	FallbackRateThreshold   float64 `yaml:"fallback_rate_threshold" mapstructure:"fallback_rate_threshold"`
	AdapterFailureThreshold float64 `yaml:"adapter_failure_threshold" mapstructure:"adapter_failure_threshold"`
	WebhookURL              string  `yaml:"webhook_url" mapstructure:"webhook_url"`
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
	v.SetEnvPrefix("MEETINGINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "meetingintel.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)

	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_retries", 0)
	v.SetDefault("openai.key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.provider", "openai")

	v.SetDefault("generation.provider", "anthropic")
	v.SetDefault("generation.timeout_secs", 45)
	v.SetDefault("generation.max_tokens", 1800)
	v.SetDefault("generation.temperature", 0.2)
	v.SetDefault("generation.retry_attempts", 3)
	v.SetDefault("generation.retry_initial_backoff_ms", 500)
	v.SetDefault("generation.retry_max_backoff_ms", 4000)
	v.SetDefault("generation.retry_multiplier", 2.0)
	v.SetDefault("generation.retry_jitter", 0.2)

	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("jina.timeout_secs", 20)
	v.SetDefault("brave.key", "")
	v.SetDefault("brave.base_url", "https://api.search.brave.com/res/v1")
	v.SetDefault("brave.country", "")
	v.SetDefault("firecrawl.key", "")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("firecrawl.timeout_secs", 30)
	v.SetDefault("github.token", "")
	v.SetDefault("github.base_url", "https://api.github.com")

	v.SetDefault("search.providers", []string{"jina", "brave"})
	v.SetDefault("search.rate_per_second", 2.0)
	v.SetDefault("search.burst", 4)
	v.SetDefault("search.result_limit", 5)

	v.SetDefault("crawl.paths", []string{"/", "/about", "/about-us", "/company", "/careers", "/blog"})
	v.SetDefault("crawl.concurrency", 3)
	v.SetDefault("crawl.timeout_secs", 15)
	v.SetDefault("crawl.user_agent", "")
	v.SetDefault("crawl.per_host_rate", 1.0)
	v.SetDefault("crawl.per_host_burst", 2)
	v.SetDefault("crawl.exclude_paths", []string{})

	v.SetDefault("adapters.timeout_secs", 8)
	v.SetDefault("adapters.max_items", 10)
	v.SetDefault("adapters.disabled", []string{})
	v.SetDefault("adapters.breaker_threshold", 3)
	v.SetDefault("adapters.breaker_reset_secs", 60)

	v.SetDefault("fusion.policy_file", "")

	cp := confidence.DefaultPolicy()
	v.SetDefault("confidence.email_high_min", cp.EmailHighMin)
	v.SetDefault("confidence.email_medium_min", cp.EmailMediumMin)
	v.SetDefault("confidence.name_company_primary_min", cp.NameCompanyPrimaryMin)
	v.SetDefault("confidence.name_company_primary_rate", cp.NameCompanyPrimaryRate)
	v.SetDefault("confidence.name_company_secondary_min", cp.NameCompanySecondaryMin)
	v.SetDefault("confidence.name_company_secondary_rate", cp.NameCompanySecondaryRate)
	v.SetDefault("confidence.social_min", cp.SocialMin)
	v.SetDefault("confidence.corroboration_min", cp.CorroborationMin)
	v.SetDefault("confidence.high_trust_weight", cp.HighTrustWeight)
	v.SetDefault("confidence.common_surnames", cp.CommonSurnames)

	v.SetDefault("guard.json_mode", true)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl_secs", 300)
	v.SetDefault("cache.max_entries", 256)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.key_prefix", "meetingintel:")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_secs", 120)
	v.SetDefault("server.shutdown_timeout_secs", 15)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.api_keys", []string{})

	v.SetDefault("batch.concurrency", 4)

	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.min_runs", 5)
	v.SetDefault("monitoring.fallback_rate_threshold", 0.3)
	v.SetDefault("monitoring.adapter_failure_threshold", 1.0)
	v.SetDefault("monitoring.webhook_url", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that the keys required by mode are present and in range.
// Modes "serve", "brief" and "batch" generate briefs; "migrate" and "runs"
// only need the store.
func (c *Config) Validate(mode string) error {
	var errs []string
	required := func(key, val string) {
		if val == "" {
			errs = append(errs, key+" is required")
		}
	}

	switch mode {
	case "serve", "brief", "batch", "migrate", "runs":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		required("store.database_url", c.Store.DatabaseURL)
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}

	if mode == "serve" || mode == "brief" || mode == "batch" {
		switch c.Generation.Provider {
		case "anthropic":
			required("anthropic.key", c.Anthropic.Key)
			required("anthropic.model", c.Anthropic.Model)
		case "openai":
			if c.OpenAI.Key == "" && c.OpenAI.BaseURL == "" {
				errs = append(errs, "openai.key or openai.base_url is required")
			}
			required("openai.model", c.OpenAI.Model)
		case "":
			required("generation.provider", "")
		default:
			errs = append(errs, fmt.Sprintf("generation.provider %q must be anthropic or openai", c.Generation.Provider))
		}
		if c.Generation.TimeoutSecs <= 0 {
			errs = append(errs, "generation.timeout_secs must be > 0")
		}
		if c.Adapters.MaxItems <= 0 {
			errs = append(errs, "adapters.max_items must be > 0")
		}

		switch c.Cache.Backend {
		case "memory", "none", "":
		case "redis":
			required("cache.redis_url", c.Cache.RedisURL)
		default:
			errs = append(errs, fmt.Sprintf("cache.backend %q must be memory, redis or none", c.Cache.Backend))
		}
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "batch":
		if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
			errs = append(errs, "batch.concurrency must be between 1 and 64")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(errs, "; "))
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
