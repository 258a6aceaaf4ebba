package main

import (
	"context"
	"slices"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/meetingintel/internal/adapter"
	"github.com/sells-group/meetingintel/internal/cache"
	"github.com/sells-group/meetingintel/internal/confidence"
	"github.com/sells-group/meetingintel/internal/config"
	"github.com/sells-group/meetingintel/internal/fusion"
	"github.com/sells-group/meetingintel/internal/generate"
	"github.com/sells-group/meetingintel/internal/guard"
	"github.com/sells-group/meetingintel/internal/identity"
	"github.com/sells-group/meetingintel/internal/pipeline"
	"github.com/sells-group/meetingintel/internal/resilience"
	"github.com/sells-group/meetingintel/internal/scrape"
	"github.com/sells-group/meetingintel/internal/search"
	"github.com/sells-group/meetingintel/internal/store"
	anthropicpkg "github.com/sells-group/meetingintel/pkg/anthropic"
	"github.com/sells-group/meetingintel/pkg/brave"
	"github.com/sells-group/meetingintel/pkg/firecrawl"
	"github.com/sells-group/meetingintel/pkg/github"
	"github.com/sells-group/meetingintel/pkg/jina"
)

// pipelineEnv holds the initialized store, cache connection and brief
// service needed by the serve/brief/batch commands.
type pipelineEnv struct {
	Store   store.Store
	Service *pipeline.Service
	redis   *goredis.Client
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.redis != nil {
		_ = pe.redis.Close()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates cfg for mode, opens the run log and builds the
// brief service. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &pipelineEnv{Store: st}

	policy := fusion.DefaultPolicy()
	if cfg.Fusion.PolicyFile != "" {
		policy, err = fusion.LoadPolicyFile(cfg.Fusion.PolicyFile)
		if err != nil {
			env.Close()
			return nil, err
		}
	}

	schema, err := guard.NewSchema()
	if err != nil {
		env.Close()
		return nil, err
	}

	gen, err := buildGenerator(cfg)
	if err != nil {
		env.Close()
		return nil, err
	}
	inv := generate.NewInvoker(gen,
		time.Duration(cfg.Generation.TimeoutSecs)*time.Second,
		resilience.NewRetryPolicy(
			cfg.Generation.RetryAttempts,
			cfg.Generation.RetryInitialBackoffMs,
			cfg.Generation.RetryMaxBackoffMs,
			cfg.Generation.RetryMultiplier,
			cfg.Generation.RetryJitter,
		),
	)

	briefCache, rdb, err := buildCache(cfg)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.redis = rdb

	searcher := buildSearcher(cfg)
	adapters := buildAdapters(cfg, searcher, buildScrapeChain(cfg))

	env.Service = pipeline.New(pipeline.Deps{
		Resolver:  identity.NewResolver(searcher),
		Collector: adapter.NewFanout(buildFanoutConfig(cfg), adapters...),
		Fusion:    fusion.NewEngine(policy),
		Estimator: confidence.NewEstimator(cfg.Confidence),
		Guard: guard.New(inv, schema, guard.Options{
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
			JSONMode:    cfg.Guard.JSONMode,
		}),
		Cache: briefCache,
		Store: st,
	})

	names := make([]string, 0, len(adapters))
	for _, a := range adapters {
		names = append(names, a.Name())
	}
	zap.L().Info("pipeline initialized",
		zap.String("provider", inv.Provider()),
		zap.Strings("adapters", names),
		zap.String("cache", cfg.Cache.Backend),
		zap.String("store", cfg.Store.Driver),
	)

	return env, nil
}

// buildGenerator returns the configured generation provider.
func buildGenerator(c *config.Config) (generate.Generator, error) {
	switch c.Generation.Provider {
	case "anthropic":
		client := anthropicpkg.NewClient(c.Anthropic.Key,
			anthropicpkg.WithBaseURL(c.Anthropic.BaseURL),
			anthropicpkg.WithMaxRetries(c.Anthropic.MaxRetries),
		)
		return generate.NewAnthropicProvider(client, c.Anthropic.Model), nil
	case "openai":
		return generate.NewOpenAIProvider(generate.OpenAIConfig{
			APIKey:   c.OpenAI.Key,
			BaseURL:  c.OpenAI.BaseURL,
			Model:    c.OpenAI.Model,
			Provider: c.OpenAI.Provider,
		}), nil
	default:
		return nil, eris.Errorf("unsupported generation provider: %s", c.Generation.Provider)
	}
}

// buildSearcher chains the configured search providers behind one rate
// limit. It returns nil when no provider is usable.
func buildSearcher(c *config.Config) search.Searcher {
	var providers []search.Searcher
	for _, name := range c.Search.Providers {
		switch name {
		case "jina":
			providers = append(providers, search.NewJina(newJinaClient(c)))
		case "brave":
			if c.Brave.Key == "" {
				zap.L().Debug("search: brave skipped, no key configured")
				continue
			}
			opts := []brave.Option{brave.WithBaseURL(c.Brave.BaseURL)}
			if c.Brave.Country != "" {
				opts = append(opts, brave.WithCountry(c.Brave.Country))
			}
			providers = append(providers, search.NewBrave(brave.NewClient(c.Brave.Key, opts...)))
		default:
			zap.L().Warn("search: unknown provider ignored", zap.String("provider", name))
		}
	}
	if len(providers) == 0 {
		return nil
	}
	return search.NewLimited(search.NewChain(providers...), c.Search.RatePerSecond, c.Search.Burst)
}

func newJinaClient(c *config.Config) jina.Client {
	opts := []jina.Option{jina.WithBaseURL(c.Jina.BaseURL)}
	if c.Jina.SearchBaseURL != "" {
		opts = append(opts, jina.WithSearchBaseURL(c.Jina.SearchBaseURL))
	}
	return jina.NewClient(c.Jina.Key, opts...)
}

// buildScrapeChain orders scrapers Jina reader, local fetch, then
// Firecrawl when a key is configured.
func buildScrapeChain(c *config.Config) *scrape.Chain {
	scrapers := []scrape.Scraper{
		scrape.NewJinaScraper(newJinaClient(c), time.Duration(c.Jina.TimeoutSecs)*time.Second),
		scrape.NewLocalScraper(scrape.LocalOptions{
			UserAgent:    c.Crawl.UserAgent,
			Timeout:      time.Duration(c.Crawl.TimeoutSecs) * time.Second,
			PerHostRate:  c.Crawl.PerHostRate,
			PerHostBurst: c.Crawl.PerHostBurst,
		}),
	}
	if c.Firecrawl.Key != "" {
		fc := firecrawl.NewClient(c.Firecrawl.Key, firecrawl.WithBaseURL(c.Firecrawl.BaseURL))
		scrapers = append(scrapers, scrape.NewFirecrawlScraper(fc, time.Duration(c.Firecrawl.TimeoutSecs)*time.Second))
	}
	return scrape.NewChain(scrape.NewPathMatcher(c.Crawl.ExcludePaths), scrapers...)
}

// buildAdapters returns the enabled adapters in enumeration order: web
// search queries, company site, code host, social profile. Adapters that
// need search are left out when searcher is nil.
func buildAdapters(c *config.Config, searcher search.Searcher, crawler adapter.Crawler) []adapter.Adapter {
	limit := c.Search.ResultLimit

	var all []adapter.Adapter
	if searcher != nil {
		for _, q := range adapter.DefaultQueries() {
			all = append(all, adapter.NewWebSearch(q, searcher, limit))
		}
	}
	all = append(all, adapter.NewSite(crawler, c.Crawl.Paths, c.Crawl.Concurrency))

	ghOpts := []github.Option{github.WithBaseURL(c.GitHub.BaseURL)}
	if c.Crawl.UserAgent != "" {
		ghOpts = append(ghOpts, github.WithUserAgent(c.Crawl.UserAgent))
	}
	all = append(all, adapter.NewCodeHost(searcher, github.NewClient(c.GitHub.Token, ghOpts...), limit))

	if searcher != nil {
		all = append(all, adapter.NewSocial(searcher, limit))
	}

	enabled := all[:0]
	for _, a := range all {
		if slices.Contains(c.Adapters.Disabled, a.Name()) {
			continue
		}
		enabled = append(enabled, a)
	}
	return enabled
}

// buildFanoutConfig keeps the default breaker behavior and overrides its
// threshold and reset window from config.
func buildFanoutConfig(c *config.Config) adapter.FanoutConfig {
	breaker := adapter.DefaultBreakerConfig()
	if c.Adapters.BreakerThreshold > 0 {
		breaker.Threshold = c.Adapters.BreakerThreshold
	}
	if c.Adapters.BreakerResetSecs > 0 {
		breaker.Cooldown = time.Duration(c.Adapters.BreakerResetSecs) * time.Second
	}
	return adapter.FanoutConfig{
		Timeout:  time.Duration(c.Adapters.TimeoutSecs) * time.Second,
		MaxItems: c.Adapters.MaxItems,
		Breakers: resilience.NewBreakers(breaker),
	}
}

// buildCache returns the brief cache, or nil when caching is off. The
// redis client is returned so the caller can close it.
func buildCache(c *config.Config) (*cache.Cache, *goredis.Client, error) {
	ttl := time.Duration(c.Cache.TTLSecs) * time.Second
	switch c.Cache.Backend {
	case "none", "":
		return nil, nil, nil
	case "memory":
		return cache.New(cache.NewMemoryBackend(c.Cache.MaxEntries), ttl), nil, nil
	case "redis":
		backend, client, err := cache.NewRedisFromURL(c.Cache.RedisURL, c.Cache.KeyPrefix)
		if err != nil {
			return nil, nil, err
		}
		return cache.New(backend, ttl), client, nil
	default:
		return nil, nil, eris.Errorf("unsupported cache backend: %s", c.Cache.Backend)
	}
}
