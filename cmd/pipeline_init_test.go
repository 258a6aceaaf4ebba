package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meetingintel/internal/adapter"
	"github.com/sells-group/meetingintel/internal/generate"
	"github.com/sells-group/meetingintel/internal/search"
)

func adapterNames(as []adapter.Adapter) []string {
	names := make([]string, len(as))
	for i, a := range as {
		names[i] = a.Name()
	}
	return names
}

func TestBuildGenerator(t *testing.T) {
	c := loadTestConfig(t)

	gen, err := buildGenerator(c)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", gen.Name())

	c.Generation.Provider = "openai"
	c.OpenAI.Provider = "groq"
	gen, err = buildGenerator(c)
	require.NoError(t, err)
	assert.Equal(t, "groq", gen.Name())
	assert.IsType(t, &generate.OpenAIProvider{}, gen)

	c.Generation.Provider = "palm"
	_, err = buildGenerator(c)
	assert.Error(t, err)
}

func TestBuildSearcher(t *testing.T) {
	c := loadTestConfig(t)

	// Brave is skipped without a key, Jina still serves.
	s := buildSearcher(c)
	require.NotNil(t, s)
	assert.IsType(t, &search.Limited{}, s)

	c.Search.Providers = []string{"brave"}
	assert.Nil(t, buildSearcher(c))

	c.Brave.Key = "brave-key"
	assert.NotNil(t, buildSearcher(c))

	c.Search.Providers = []string{"bing"}
	assert.Nil(t, buildSearcher(c))
}

func TestBuildAdapters_Order(t *testing.T) {
	c := loadTestConfig(t)

	as := buildAdapters(c, buildSearcher(c), buildScrapeChain(c))
	assert.Equal(t, []string{
		"web-search-company",
		"web-search-news",
		"web-search-hiring",
		"web-search-person",
		"company-site",
		"code-host",
		"social",
	}, adapterNames(as))
}

func TestBuildAdapters_Disabled(t *testing.T) {
	c := loadTestConfig(t)
	c.Adapters.Disabled = []string{"social", "web-search-news"}

	names := adapterNames(buildAdapters(c, buildSearcher(c), buildScrapeChain(c)))
	assert.NotContains(t, names, "social")
	assert.NotContains(t, names, "web-search-news")
	assert.Contains(t, names, "company-site")
}

func TestBuildAdapters_NoSearcher(t *testing.T) {
	c := loadTestConfig(t)

	names := adapterNames(buildAdapters(c, nil, buildScrapeChain(c)))
	assert.Equal(t, []string{"company-site", "code-host"}, names)
}

func TestBuildFanoutConfig(t *testing.T) {
	c := loadTestConfig(t)
	c.Adapters.TimeoutSecs = 3
	c.Adapters.MaxItems = 6

	fc := buildFanoutConfig(c)
	assert.Equal(t, 3*time.Second, fc.Timeout)
	assert.Equal(t, 6, fc.MaxItems)
	require.NotNil(t, fc.Breakers)
	assert.NotNil(t, fc.Breakers.For("social"))
}

func TestBuildCache(t *testing.T) {
	c := loadTestConfig(t)

	bc, rdb, err := buildCache(c)
	require.NoError(t, err)
	assert.NotNil(t, bc)
	assert.Nil(t, rdb)

	c.Cache.Backend = "none"
	bc, _, err = buildCache(c)
	require.NoError(t, err)
	assert.Nil(t, bc)

	c.Cache.Backend = "redis"
	c.Cache.RedisURL = "redis://localhost:6379/0"
	bc, rdb, err = buildCache(c)
	require.NoError(t, err)
	assert.NotNil(t, bc)
	require.NotNil(t, rdb)
	_ = rdb.Close()

	c.Cache.RedisURL = "://bad"
	_, _, err = buildCache(c)
	assert.Error(t, err)

	c.Cache.Backend = "memcached"
	_, _, err = buildCache(c)
	assert.Error(t, err)
}

func TestInitPipeline_InvalidConfig(t *testing.T) {
	c := loadTestConfig(t)
	c.Anthropic.Key = ""

	_, err := initPipeline(context.Background(), "brief")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestInitPipeline_SQLite(t *testing.T) {
	c := loadTestConfig(t)
	c.Anthropic.Key = "sk-ant-test"

	env, err := initPipeline(context.Background(), "brief")
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Service)
	assert.NotNil(t, env.Store)
}
