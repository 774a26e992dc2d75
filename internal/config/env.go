package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Field names map to environment variables directly; nested structs use an
// underscore delimiter (e.g. LLM_ENDPOINT_BASE_URL).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.kgraph
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/kgraph.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// APIKeys is a comma-separated list of valid API keys.
	// Env: API_KEYS
	APIKeys string `envconfig:"API_KEYS"`

	// LLMEndpoint configures the extraction language model.
	LLMEndpoint EndpointEnv `envconfig:"LLM_ENDPOINT"`

	// Extraction configures the extraction pipeline and batch worker.
	Extraction ExtractionEnv `envconfig:"EXTRACTION"`

	// Graph configures graph query limits.
	Graph GraphEnv `envconfig:"GRAPH"`

	// WorkerCount is the number of extraction queue workers.
	// Env: WORKER_COUNT (default: 2)
	WorkerCount int `envconfig:"WORKER_COUNT" default:"2"`

	// BatchWorkerCount is the number of batch job workers.
	// Env: BATCH_WORKER_COUNT (default: 1)
	BatchWorkerCount int `envconfig:"BATCH_WORKER_COUNT" default:"1"`

	// SearchLimit is the default search result limit.
	// Env: SEARCH_LIMIT (default: 10)
	SearchLimit int `envconfig:"SEARCH_LIMIT" default:"10"`

	// TemplateDir is the directory scanned for schema template YAML files.
	// Env: TEMPLATE_DIR
	// Default: {data_dir}/schemas
	TemplateDir string `envconfig:"TEMPLATE_DIR"`
}

// EndpointEnv holds environment configuration for the LLM endpoint.
type EndpointEnv struct {
	// BaseURL is the base URL for the endpoint.
	// Env: LLM_ENDPOINT_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the model identifier (e.g. gpt-4o-mini).
	// Env: LLM_ENDPOINT_MODEL
	Model string `envconfig:"MODEL"`

	// APIKey is the API key for authentication.
	// Env: LLM_ENDPOINT_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Timeout is the request timeout in seconds.
	// Env: LLM_ENDPOINT_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// MaxRetries is the maximum number of retries.
	// Env: LLM_ENDPOINT_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: LLM_ENDPOINT_INITIAL_DELAY (default: 2.0)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"2.0"`

	// BackoffFactor is the retry backoff multiplier.
	// Env: LLM_ENDPOINT_BACKOFF_FACTOR (default: 2.0)
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`

	// MaxTokens is the maximum completion token limit.
	// Env: LLM_ENDPOINT_MAX_TOKENS (default: 4000)
	MaxTokens int `envconfig:"MAX_TOKENS" default:"4000"`
}

// ExtractionEnv holds environment configuration for extraction.
type ExtractionEnv struct {
	// RatePerSecond is the shared LLM call rate limit.
	// Env: EXTRACTION_RATE_PER_SECOND (default: 2)
	RatePerSecond float64 `envconfig:"RATE_PER_SECOND" default:"2"`

	// RateBurst is the rate limiter burst size.
	// Env: EXTRACTION_RATE_BURST (default: 4)
	RateBurst int `envconfig:"RATE_BURST" default:"4"`

	// ChunkParallelism bounds concurrent chunk extraction per document.
	// Env: EXTRACTION_CHUNK_PARALLELISM (default: 4)
	ChunkParallelism int `envconfig:"CHUNK_PARALLELISM" default:"4"`

	// JobSoftTimeLimitSeconds is the batch job soft time limit in seconds.
	// Env: EXTRACTION_JOB_SOFT_TIME_LIMIT_SECONDS (default: 1800)
	JobSoftTimeLimitSeconds float64 `envconfig:"JOB_SOFT_TIME_LIMIT_SECONDS" default:"1800"`

	// SimilarityThreshold is the dedup token-similarity accept threshold.
	// Env: EXTRACTION_SIMILARITY_THRESHOLD (default: 0.9)
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.9"`
}

// GraphEnv holds environment configuration for graph query limits.
type GraphEnv struct {
	// QueryTimeoutSeconds is the server-side query timeout in seconds.
	// Env: GRAPH_QUERY_TIMEOUT_SECONDS (default: 5)
	QueryTimeoutSeconds float64 `envconfig:"QUERY_TIMEOUT_SECONDS" default:"5"`

	// RowCap is the maximum result rows per query.
	// Env: GRAPH_ROW_CAP (default: 2000)
	RowCap int `envconfig:"ROW_CAP" default:"2000"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "KGRAPH" would require KGRAPH_DATA_DIR instead of DATA_DIR.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = applyOption(cfg, WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = applyOption(cfg, WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = applyOption(cfg, WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		cfg = applyOption(cfg, WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = applyOption(cfg, WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = applyOption(cfg, WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.APIKeys != "" {
		cfg = applyOption(cfg, WithAPIKeys(ParseAPIKeys(e.APIKeys)))
	}
	if e.LLMEndpoint.IsConfigured() {
		cfg = applyOption(cfg, WithLLMEndpoint(e.LLMEndpoint.ToEndpoint()))
	}
	cfg = applyOption(cfg, WithExtractionConfig(e.Extraction.ToExtractionConfig()))
	cfg = applyOption(cfg, WithGraphConfig(e.Graph.ToGraphConfig()))
	if e.WorkerCount > 0 {
		cfg = applyOption(cfg, WithWorkerCount(e.WorkerCount))
	}
	if e.BatchWorkerCount > 0 {
		cfg = applyOption(cfg, WithBatchWorkerCount(e.BatchWorkerCount))
	}
	if e.SearchLimit > 0 {
		cfg = applyOption(cfg, WithSearchLimit(e.SearchLimit))
	}
	if e.TemplateDir != "" {
		cfg = applyOption(cfg, WithTemplateDir(e.TemplateDir))
	}

	return cfg
}

// applyOption applies an option to the config.
func applyOption(cfg AppConfig, opt AppConfigOption) AppConfig {
	opt(&cfg)
	return cfg
}

// IsConfigured returns true if the endpoint has a model configured.
func (e EndpointEnv) IsConfigured() bool {
	return e.Model != ""
}

// ToEndpoint converts EndpointEnv to Endpoint.
func (e EndpointEnv) ToEndpoint() Endpoint {
	opts := []EndpointOption{
		WithModel(e.Model),
		WithTimeout(time.Duration(e.Timeout * float64(time.Second))),
		WithMaxRetries(e.MaxRetries),
		WithInitialDelay(time.Duration(e.InitialDelay * float64(time.Second))),
		WithBackoffFactor(e.BackoffFactor),
		WithMaxTokens(e.MaxTokens),
	}
	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}
	return NewEndpointWithOptions(opts...)
}

// ToExtractionConfig converts ExtractionEnv to ExtractionConfig.
func (x ExtractionEnv) ToExtractionConfig() ExtractionConfig {
	cfg := NewExtractionConfig()
	if x.RatePerSecond > 0 {
		cfg = cfg.WithRatePerSecond(x.RatePerSecond)
	}
	if x.RateBurst > 0 {
		cfg = cfg.WithRateBurst(x.RateBurst)
	}
	if x.ChunkParallelism > 0 {
		cfg = cfg.WithChunkParallelism(x.ChunkParallelism)
	}
	if x.JobSoftTimeLimitSeconds > 0 {
		cfg = cfg.WithJobSoftTimeLimit(time.Duration(x.JobSoftTimeLimitSeconds * float64(time.Second)))
	}
	if x.SimilarityThreshold > 0 {
		cfg = cfg.WithSimilarityThreshold(x.SimilarityThreshold)
	}
	return cfg
}

// ToGraphConfig converts GraphEnv to GraphConfig.
func (g GraphEnv) ToGraphConfig() GraphConfig {
	cfg := NewGraphConfig()
	if g.QueryTimeoutSeconds > 0 {
		cfg = cfg.WithQueryTimeout(time.Duration(g.QueryTimeoutSeconds * float64(time.Second)))
	}
	if g.RowCap > 0 {
		cfg = cfg.WithRowCap(g.RowCap)
	}
	return cfg
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}
