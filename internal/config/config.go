// Package config loads application configuration from environment
// variables, an optional .env file, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Environments.
const (
	EnvLocal   = "local"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

// Config holds all runtime configuration for the service.
type Config struct {
	DatabaseURL string
	AppEnv      string
	LogLevel    string

	HTTPListenAddr string

	QueryDefaultRadiusM int
	QueryMaxResults     int

	CrawlGlobalConcurrency  int
	CrawlPerHostConcurrency int
	CrawlBudgetMS           int
	CrawlPageSizeLimit      int
	CrawlMinVisibleChars    int
	CrawlUserAgent          string

	FreshHoursDays            int
	FreshMenuContactPriceDays int
	FreshDescFeaturesDays     int

	WorkerCount        int
	WorkerBatchSize    int
	WorkerSleepSeconds int

	SchedulerSleepSeconds  int
	SchedulerBatchSize     int
	SchedulerTopPercentile float64
	ReapRunningMinutes     int

	EmbeddingModel        string
	EmbeddingBatchSize    int
	EmbeddingSleepSeconds int
	EmbeddingMinTextChars int
}

// envBindings maps viper keys to environment variable names.
var envBindings = map[string]string{
	"database_url":                  "DATABASE_URL",
	"app_env":                       "APP_ENV",
	"log_level":                     "LOG_LEVEL",
	"http_listen_addr":              "HTTP_LISTEN_ADDR",
	"query_default_radius_m":        "QUERY_DEFAULT_RADIUS_M",
	"query_max_results":             "QUERY_MAX_RESULTS",
	"crawl_global_concurrency":      "CRAWL_GLOBAL_CONCURRENCY",
	"crawl_per_host_concurrency":    "CRAWL_PER_HOST_CONCURRENCY",
	"crawl_budget_ms":               "CRAWL_BUDGET_MS",
	"crawl_page_size_limit_bytes":   "CRAWL_PAGE_SIZE_LIMIT_BYTES",
	"crawl_min_visible_chars":       "CRAWL_MIN_VISIBLE_CHARS",
	"crawl_user_agent":              "CRAWL_USER_AGENT",
	"fresh_hours_days":              "FRESH_HOURS_DAYS",
	"fresh_menu_contact_price_days": "FRESH_MENU_CONTACT_PRICE_DAYS",
	"fresh_desc_features_days":      "FRESH_DESC_FEATURES_DAYS",
	"worker_count":                  "WORKER_COUNT",
	"worker_batch_size":             "WORKER_BATCH_SIZE",
	"worker_sleep_seconds":          "WORKER_SLEEP_SECONDS",
	"scheduler_sleep_seconds":       "SCHEDULER_SLEEP_SECONDS",
	"scheduler_batch_size":          "SCHEDULER_BATCH_SIZE",
	"scheduler_top_percentile":      "SCHEDULER_TOP_PERCENTILE",
	"reap_running_minutes":          "REAP_RUNNING_MINUTES",
	"embedding_model":               "EMBEDDING_MODEL",
	"embedding_batch_size":          "EMBEDDING_BATCH_SIZE",
	"embedding_sleep_seconds":       "EMBEDDING_SLEEP_SECONDS",
	"embedding_min_text_chars":      "EMBEDDING_MIN_TEXT_CHARS",
}

// Load reads configuration into a validated Config. Precedence: command
// flags, then environment variables (and .env, if present), then
// defaults. flags may be nil; flag names map to viper keys with dashes
// replaced by underscores.
func Load(flags *pflag.FlagSet) (*Config, error) {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	cfg := &Config{
		DatabaseURL:               v.GetString("database_url"),
		AppEnv:                    v.GetString("app_env"),
		LogLevel:                  v.GetString("log_level"),
		HTTPListenAddr:            v.GetString("http_listen_addr"),
		QueryDefaultRadiusM:       v.GetInt("query_default_radius_m"),
		QueryMaxResults:           v.GetInt("query_max_results"),
		CrawlGlobalConcurrency:    v.GetInt("crawl_global_concurrency"),
		CrawlPerHostConcurrency:   v.GetInt("crawl_per_host_concurrency"),
		CrawlBudgetMS:             v.GetInt("crawl_budget_ms"),
		CrawlPageSizeLimit:        v.GetInt("crawl_page_size_limit_bytes"),
		CrawlMinVisibleChars:      v.GetInt("crawl_min_visible_chars"),
		CrawlUserAgent:            v.GetString("crawl_user_agent"),
		FreshHoursDays:            v.GetInt("fresh_hours_days"),
		FreshMenuContactPriceDays: v.GetInt("fresh_menu_contact_price_days"),
		FreshDescFeaturesDays:     v.GetInt("fresh_desc_features_days"),
		WorkerCount:               v.GetInt("worker_count"),
		WorkerBatchSize:           v.GetInt("worker_batch_size"),
		WorkerSleepSeconds:        v.GetInt("worker_sleep_seconds"),
		SchedulerSleepSeconds:     v.GetInt("scheduler_sleep_seconds"),
		SchedulerBatchSize:        v.GetInt("scheduler_batch_size"),
		SchedulerTopPercentile:    v.GetFloat64("scheduler_top_percentile"),
		ReapRunningMinutes:        v.GetInt("reap_running_minutes"),
		EmbeddingModel:            v.GetString("embedding_model"),
		EmbeddingBatchSize:        v.GetInt("embedding_batch_size"),
		EmbeddingSleepSeconds:     v.GetInt("embedding_sleep_seconds"),
		EmbeddingMinTextChars:     v.GetInt("embedding_min_text_chars"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for required values and sane ranges.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	switch c.AppEnv {
	case EnvLocal, EnvStaging, EnvProd:
	default:
		return fmt.Errorf("invalid APP_ENV %q", c.AppEnv)
	}
	if c.CrawlGlobalConcurrency < 1 {
		return errors.New("CRAWL_GLOBAL_CONCURRENCY must be at least 1")
	}
	if c.CrawlPerHostConcurrency < 1 {
		return errors.New("CRAWL_PER_HOST_CONCURRENCY must be at least 1")
	}
	if c.CrawlBudgetMS < 1000 {
		return errors.New("CRAWL_BUDGET_MS must be at least 1000")
	}
	if c.WorkerCount < 1 {
		return errors.New("WORKER_COUNT must be at least 1")
	}
	if c.SchedulerTopPercentile <= 0 || c.SchedulerTopPercentile > 1 {
		return errors.New("SCHEDULER_TOP_PERCENTILE must be in (0,1]")
	}
	return nil
}

// Development reports whether the service runs in a local environment.
func (c *Config) Development() bool {
	return c.AppEnv == EnvLocal
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", EnvLocal)
	v.SetDefault("log_level", "info")
	v.SetDefault("http_listen_addr", ":8080")

	v.SetDefault("query_default_radius_m", 1500)
	v.SetDefault("query_max_results", 30)

	v.SetDefault("crawl_global_concurrency", 32)
	v.SetDefault("crawl_per_host_concurrency", 2)
	v.SetDefault("crawl_budget_ms", 5000)
	v.SetDefault("crawl_page_size_limit_bytes", 2_000_000)
	v.SetDefault("crawl_min_visible_chars", 200)
	v.SetDefault("crawl_user_agent", "VenueScoutBot/0.1")

	v.SetDefault("fresh_hours_days", 3)
	v.SetDefault("fresh_menu_contact_price_days", 14)
	v.SetDefault("fresh_desc_features_days", 30)

	v.SetDefault("worker_count", 1)
	v.SetDefault("worker_batch_size", 8)
	v.SetDefault("worker_sleep_seconds", 1)

	v.SetDefault("scheduler_sleep_seconds", 300)
	v.SetDefault("scheduler_batch_size", 50)
	v.SetDefault("scheduler_top_percentile", 0.9)
	v.SetDefault("reap_running_minutes", 30)

	v.SetDefault("embedding_model", "paraphrase-multilingual-MiniLM-L12-v2")
	v.SetDefault("embedding_batch_size", 100)
	v.SetDefault("embedding_sleep_seconds", 60)
	v.SetDefault("embedding_min_text_chars", 40)
}
