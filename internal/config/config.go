// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost                  = "0.0.0.0"
	DefaultPort                  = 8080
	DefaultLogLevel              = "INFO"
	DefaultWorkerCount           = 2
	DefaultBatchWorkerCount      = 1
	DefaultSearchLimit           = 10
	DefaultEndpointTimeout       = 60 * time.Second
	DefaultEndpointMaxRetries    = 5
	DefaultEndpointInitialDelay  = 2 * time.Second
	DefaultEndpointBackoffFactor = 2.0
	DefaultEndpointMaxTokens     = 4000
	DefaultLLMRatePerSecond      = 2.0
	DefaultLLMRateBurst          = 4
	DefaultChunkParallelism      = 4
	DefaultJobSoftTimeLimit      = 30 * time.Minute
	DefaultQueuePollInterval     = time.Second
	DefaultSimilarityThreshold   = 0.9
	DefaultGraphQueryTimeout     = 5 * time.Second
	DefaultGraphRowCap           = 2000
	DefaultTemplateSubdir        = "schemas"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// Endpoint configures the language model endpoint used for extraction.
type Endpoint struct {
	baseURL       string
	model         string
	apiKey        string
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	maxTokens     int
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		timeout:       DefaultEndpointTimeout,
		maxRetries:    DefaultEndpointMaxRetries,
		initialDelay:  DefaultEndpointInitialDelay,
		backoffFactor: DefaultEndpointBackoffFactor,
		maxTokens:     DefaultEndpointMaxTokens,
	}
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the initial retry delay.
func (e Endpoint) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (e Endpoint) BackoffFactor() float64 { return e.backoffFactor }

// MaxTokens returns the maximum token limit.
func (e Endpoint) MaxTokens() int { return e.maxTokens }

// IsConfigured returns true if the endpoint has required configuration.
func (e Endpoint) IsConfigured() bool {
	return e.model != ""
}

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) EndpointOption {
	return func(e *Endpoint) { e.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.initialDelay = d }
}

// WithBackoffFactor sets the retry backoff multiplier.
func WithBackoffFactor(f float64) EndpointOption {
	return func(e *Endpoint) { e.backoffFactor = f }
}

// WithMaxTokens sets the maximum token limit.
func WithMaxTokens(n int) EndpointOption {
	return func(e *Endpoint) { e.maxTokens = n }
}

// NewEndpointWithOptions creates an Endpoint with functional options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// ExtractionConfig configures the extraction pipeline and batch worker.
type ExtractionConfig struct {
	ratePerSecond       float64
	rateBurst           int
	chunkParallelism    int
	jobSoftTimeLimit    time.Duration
	similarityThreshold float64
}

// NewExtractionConfig creates a new ExtractionConfig with defaults.
func NewExtractionConfig() ExtractionConfig {
	return ExtractionConfig{
		ratePerSecond:       DefaultLLMRatePerSecond,
		rateBurst:           DefaultLLMRateBurst,
		chunkParallelism:    DefaultChunkParallelism,
		jobSoftTimeLimit:    DefaultJobSoftTimeLimit,
		similarityThreshold: DefaultSimilarityThreshold,
	}
}

// RatePerSecond returns the shared LLM call rate limit.
func (x ExtractionConfig) RatePerSecond() float64 { return x.ratePerSecond }

// RateBurst returns the rate limiter burst size.
func (x ExtractionConfig) RateBurst() int { return x.rateBurst }

// ChunkParallelism returns the per-document concurrent chunk extraction bound.
func (x ExtractionConfig) ChunkParallelism() int { return x.chunkParallelism }

// JobSoftTimeLimit returns the batch job soft execution-time limit. Jobs
// exceeding it requeue their remaining documents instead of being killed.
func (x ExtractionConfig) JobSoftTimeLimit() time.Duration { return x.jobSoftTimeLimit }

// SimilarityThreshold returns the dedup token-similarity accept threshold.
func (x ExtractionConfig) SimilarityThreshold() float64 { return x.similarityThreshold }

// WithRatePerSecond returns a new config with the specified rate.
func (x ExtractionConfig) WithRatePerSecond(r float64) ExtractionConfig {
	x.ratePerSecond = r
	return x
}

// WithRateBurst returns a new config with the specified burst.
func (x ExtractionConfig) WithRateBurst(n int) ExtractionConfig {
	x.rateBurst = n
	return x
}

// WithChunkParallelism returns a new config with the specified bound.
func (x ExtractionConfig) WithChunkParallelism(n int) ExtractionConfig {
	x.chunkParallelism = n
	return x
}

// WithJobSoftTimeLimit returns a new config with the specified limit.
func (x ExtractionConfig) WithJobSoftTimeLimit(d time.Duration) ExtractionConfig {
	x.jobSoftTimeLimit = d
	return x
}

// WithSimilarityThreshold returns a new config with the specified threshold.
func (x ExtractionConfig) WithSimilarityThreshold(t float64) ExtractionConfig {
	x.similarityThreshold = t
	return x
}

// GraphConfig configures graph query limits.
type GraphConfig struct {
	queryTimeout time.Duration
	rowCap       int
}

// NewGraphConfig creates a new GraphConfig with defaults.
func NewGraphConfig() GraphConfig {
	return GraphConfig{
		queryTimeout: DefaultGraphQueryTimeout,
		rowCap:       DefaultGraphRowCap,
	}
}

// QueryTimeout returns the server-side graph query timeout.
func (g GraphConfig) QueryTimeout() time.Duration { return g.queryTimeout }

// RowCap returns the maximum result rows per graph query.
func (g GraphConfig) RowCap() int { return g.rowCap }

// WithQueryTimeout returns a new config with the specified timeout.
func (g GraphConfig) WithQueryTimeout(d time.Duration) GraphConfig {
	g.queryTimeout = d
	return g
}

// WithRowCap returns a new config with the specified cap.
func (g GraphConfig) WithRowCap(n int) GraphConfig {
	g.rowCap = n
	return g
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host             string
	port             int
	dataDir          string
	dbURL            string
	logLevel         string
	logFormat        LogFormat
	apiKeys          []string
	llmEndpoint      *Endpoint
	extraction       ExtractionConfig
	graph            GraphConfig
	workerCount      int
	batchWorkerCount int
	searchLimit      int
	queuePoll        time.Duration
	templateDir      string
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kgraph"
	}
	return filepath.Join(home, ".kgraph")
}

// DefaultLogger returns the default slog logger for library consumers.
func DefaultLogger() *slog.Logger {
	return slog.Default()
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:             DefaultHost,
		port:             DefaultPort,
		dataDir:          dataDir,
		dbURL:            "sqlite:///" + filepath.Join(dataDir, "kgraph.db"),
		logLevel:         DefaultLogLevel,
		logFormat:        LogFormatPretty,
		apiKeys:          []string{},
		extraction:       NewExtractionConfig(),
		graph:            NewGraphConfig(),
		workerCount:      DefaultWorkerCount,
		batchWorkerCount: DefaultBatchWorkerCount,
		searchLimit:      DefaultSearchLimit,
		queuePoll:        DefaultQueuePollInterval,
		templateDir:      filepath.Join(dataDir, DefaultTemplateSubdir),
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// APIKeys returns the configured API keys.
func (c AppConfig) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// LLMEndpoint returns the language model endpoint config, or nil when
// extraction is not configured.
func (c AppConfig) LLMEndpoint() *Endpoint { return c.llmEndpoint }

// Extraction returns the extraction pipeline config.
func (c AppConfig) Extraction() ExtractionConfig { return c.extraction }

// Graph returns the graph query limit config.
func (c AppConfig) Graph() GraphConfig { return c.graph }

// WorkerCount returns the number of extraction queue workers.
func (c AppConfig) WorkerCount() int { return c.workerCount }

// BatchWorkerCount returns the number of batch job workers.
func (c AppConfig) BatchWorkerCount() int { return c.batchWorkerCount }

// SearchLimit returns the default search result limit.
func (c AppConfig) SearchLimit() int { return c.searchLimit }

// QueuePollInterval returns how often idle workers poll the queue.
func (c AppConfig) QueuePollInterval() time.Duration { return c.queuePoll }

// TemplateDir returns the directory scanned for schema template YAML files.
func (c AppConfig) TemplateDir() string { return c.templateDir }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		c.dataDir = dir
		if c.dbURL == "" || strings.Contains(c.dbURL, "kgraph.db") {
			c.dbURL = "sqlite:///" + filepath.Join(dir, "kgraph.db")
		}
		if c.templateDir == "" || strings.HasSuffix(c.templateDir, DefaultTemplateSubdir) {
			c.templateDir = filepath.Join(dir, DefaultTemplateSubdir)
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithAPIKeys sets the valid API keys.
func WithAPIKeys(keys []string) AppConfigOption {
	return func(c *AppConfig) {
		c.apiKeys = make([]string, len(keys))
		copy(c.apiKeys, keys)
	}
}

// WithLLMEndpoint sets the language model endpoint.
func WithLLMEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.llmEndpoint = &e }
}

// WithExtractionConfig sets the extraction pipeline config.
func WithExtractionConfig(x ExtractionConfig) AppConfigOption {
	return func(c *AppConfig) { c.extraction = x }
}

// WithGraphConfig sets the graph query limit config.
func WithGraphConfig(g GraphConfig) AppConfigOption {
	return func(c *AppConfig) { c.graph = g }
}

// WithWorkerCount sets the extraction worker count.
func WithWorkerCount(n int) AppConfigOption {
	return func(c *AppConfig) { c.workerCount = n }
}

// WithBatchWorkerCount sets the batch job worker count.
func WithBatchWorkerCount(n int) AppConfigOption {
	return func(c *AppConfig) { c.batchWorkerCount = n }
}

// WithSearchLimit sets the default search result limit.
func WithSearchLimit(n int) AppConfigOption {
	return func(c *AppConfig) { c.searchLimit = n }
}

// WithQueuePollInterval sets the idle queue poll interval.
func WithQueuePollInterval(d time.Duration) AppConfigOption {
	return func(c *AppConfig) { c.queuePoll = d }
}

// WithTemplateDir sets the schema template directory.
func WithTemplateDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.templateDir = dir }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// ParseAPIKeys splits a comma-separated key list, trimming whitespace and
// dropping empty entries.
func ParseAPIKeys(s string) []string {
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
