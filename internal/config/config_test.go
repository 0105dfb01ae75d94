package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/venuescout?sslmode=disable")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.Equal(t, 1500, cfg.QueryDefaultRadiusM)
	assert.Equal(t, 32, cfg.CrawlGlobalConcurrency)
	assert.Equal(t, 2, cfg.CrawlPerHostConcurrency)
	assert.Equal(t, 5000, cfg.CrawlBudgetMS)
	assert.Equal(t, 2_000_000, cfg.CrawlPageSizeLimit)
	assert.Equal(t, 200, cfg.CrawlMinVisibleChars)
	assert.Equal(t, "VenueScoutBot/0.1", cfg.CrawlUserAgent)
	assert.Equal(t, 3, cfg.FreshHoursDays)
	assert.Equal(t, 14, cfg.FreshMenuContactPriceDays)
	assert.Equal(t, 30, cfg.FreshDescFeaturesDays)
	assert.Equal(t, 300, cfg.SchedulerSleepSeconds)
	assert.Equal(t, 50, cfg.SchedulerBatchSize)
	assert.InDelta(t, 0.9, cfg.SchedulerTopPercentile, 0.001)
	assert.Equal(t, 40, cfg.EmbeddingMinTextChars)

	assert.True(t, cfg.Development())
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db:5432/venuescout")
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("HTTP_LISTEN_ADDR", ":9090")
	t.Setenv("CRAWL_GLOBAL_CONCURRENCY", "64")
	t.Setenv("SCHEDULER_TOP_PERCENTILE", "0.75")
	t.Setenv("WORKER_COUNT", "4")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, EnvProd, cfg.AppEnv)
	assert.Equal(t, ":9090", cfg.HTTPListenAddr)
	assert.Equal(t, 64, cfg.CrawlGlobalConcurrency)
	assert.InDelta(t, 0.75, cfg.SchedulerTopPercentile, 0.001)
	assert.Equal(t, 4, cfg.WorkerCount)

	assert.False(t, cfg.Development())
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadBindsFlags(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/venuescout")
	t.Setenv("WORKER_COUNT", "2")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("database-url", "", "")
	fs.Int("worker-count", 1, "")
	fs.Int("crawl-budget-ms", 5000, "")
	require.NoError(t, fs.Parse([]string{"--crawl-budget-ms=7000"}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	// A set flag wins; unchanged flags leave env and defaults intact.
	assert.Equal(t, 7000, cfg.CrawlBudgetMS)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, "postgres://localhost/venuescout", cfg.DatabaseURL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DatabaseURL:             "postgres://localhost/venuescout",
			AppEnv:                  EnvLocal,
			CrawlGlobalConcurrency:  32,
			CrawlPerHostConcurrency: 2,
			CrawlBudgetMS:           5000,
			WorkerCount:             1,
			SchedulerTopPercentile:  0.9,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad app env", func(c *Config) { c.AppEnv = "production" }},
		{"zero global concurrency", func(c *Config) { c.CrawlGlobalConcurrency = 0 }},
		{"zero per-host concurrency", func(c *Config) { c.CrawlPerHostConcurrency = 0 }},
		{"budget too small", func(c *Config) { c.CrawlBudgetMS = 500 }},
		{"zero workers", func(c *Config) { c.WorkerCount = 0 }},
		{"percentile out of range", func(c *Config) { c.SchedulerTopPercentile = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, valid().Validate())
}
