// Package config loads process configuration from environment variables
// (optionally via a .env file) following the teacher's Config+validate
// constructor idiom: New() defaults and validates before returning.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the fully-resolved process configuration. Field names
// mirror the environment variables named in spec §6.
type Config struct {
	DatabaseURL string

	GoogleAPIKey string
	AnthropicAPIKey string

	ETLMaxConcurrentJobs int
	ETLJobTimeoutMinutes int
	ETLMaxRetries        int
	ETLRetryDelaySeconds int
	ETLEnablePartialCompletion bool
	ETLValidationLevel   string // basic | standard | strict
	ETLEnableRollback    bool

	EmbeddingBatchSize           int
	EmbeddingRateLimitPerMinute  int
	EmbeddingEnableCache         bool
	EmbeddingCacheTTLHours       int
	EmbeddingDimension           int

	VectorSearchCacheTTL time.Duration
	ContextTokenBudget   int

	MetricsExportInterval time.Duration

	LogLevel string
}

// New loads configuration from the environment (after attempting to
// load a .env file, ignoring its absence) and returns a validated
// Config.
func New() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("ETL_MAX_CONCURRENT_JOBS", 5)
	v.SetDefault("ETL_JOB_TIMEOUT_MINUTES", 30)
	v.SetDefault("ETL_MAX_RETRIES", 3)
	v.SetDefault("ETL_RETRY_DELAY_SECONDS", 60)
	v.SetDefault("ETL_ENABLE_PARTIAL_COMPLETION", true)
	v.SetDefault("ETL_VALIDATION_LEVEL", "standard")
	v.SetDefault("ETL_ENABLE_ROLLBACK", true)

	v.SetDefault("EMBEDDING_BATCH_SIZE", 5)
	v.SetDefault("EMBEDDING_RATE_LIMIT_PER_MINUTE", 60)
	v.SetDefault("EMBEDDING_ENABLE_CACHE", true)
	v.SetDefault("EMBEDDING_CACHE_TTL_HOURS", 24)
	v.SetDefault("EMBEDDING_DIMENSION", 768)

	v.SetDefault("VECTOR_SEARCH_CACHE_TTL_SECONDS", 300)
	v.SetDefault("CONTEXT_TOKEN_BUDGET", 4000)

	v.SetDefault("METRICS_EXPORT_INTERVAL_SECONDS", 60)

	v.SetDefault("ETL_LOG_LEVEL", "info")

	cfg := &Config{
		DatabaseURL:     v.GetString("DATABASE_URL"),
		GoogleAPIKey:    v.GetString("GOOGLE_API_KEY"),
		AnthropicAPIKey: v.GetString("ANTHROPIC_API_KEY"),

		ETLMaxConcurrentJobs:       v.GetInt("ETL_MAX_CONCURRENT_JOBS"),
		ETLJobTimeoutMinutes:       v.GetInt("ETL_JOB_TIMEOUT_MINUTES"),
		ETLMaxRetries:              v.GetInt("ETL_MAX_RETRIES"),
		ETLRetryDelaySeconds:       v.GetInt("ETL_RETRY_DELAY_SECONDS"),
		ETLEnablePartialCompletion: v.GetBool("ETL_ENABLE_PARTIAL_COMPLETION"),
		ETLValidationLevel:         v.GetString("ETL_VALIDATION_LEVEL"),
		ETLEnableRollback:          v.GetBool("ETL_ENABLE_ROLLBACK"),

		EmbeddingBatchSize:          v.GetInt("EMBEDDING_BATCH_SIZE"),
		EmbeddingRateLimitPerMinute: v.GetInt("EMBEDDING_RATE_LIMIT_PER_MINUTE"),
		EmbeddingEnableCache:        v.GetBool("EMBEDDING_ENABLE_CACHE"),
		EmbeddingCacheTTLHours:      v.GetInt("EMBEDDING_CACHE_TTL_HOURS"),
		EmbeddingDimension:          v.GetInt("EMBEDDING_DIMENSION"),

		VectorSearchCacheTTL: time.Duration(v.GetInt("VECTOR_SEARCH_CACHE_TTL_SECONDS")) * time.Second,
		ContextTokenBudget:   v.GetInt("CONTEXT_TOKEN_BUDGET"),

		MetricsExportInterval: time.Duration(v.GetInt("METRICS_EXPORT_INTERVAL_SECONDS")) * time.Second,

		LogLevel: v.GetString("ETL_LOG_LEVEL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.ETLValidationLevel {
	case "basic", "standard", "strict":
	default:
		return fmt.Errorf("config: invalid ETL_VALIDATION_LEVEL %q", c.ETLValidationLevel)
	}
	if c.ETLMaxConcurrentJobs < 1 {
		c.ETLMaxConcurrentJobs = 1
	}
	if c.EmbeddingBatchSize < 1 {
		c.EmbeddingBatchSize = 3
	}
	if c.EmbeddingDimension < 1 {
		return fmt.Errorf("config: EMBEDDING_DIMENSION must be positive, got %d", c.EmbeddingDimension)
	}
	if c.ContextTokenBudget < 1 {
		c.ContextTokenBudget = 4000
	}
	if c.MetricsExportInterval < time.Second {
		c.MetricsExportInterval = 60 * time.Second
	}
	return nil
}
