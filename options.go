package kgraph

import (
	"github.com/inquira/kgraph/domain/extraction"
	"github.com/inquira/kgraph/domain/retrieval"
	"github.com/inquira/kgraph/internal/config"
	"github.com/inquira/kgraph/internal/log"
)

// clientConfig holds configuration for Client construction.
type clientConfig struct {
	app          config.AppConfig
	logger       *log.Logger
	searcher     retrieval.VectorSearcher
	completer    extraction.Completer
	startWorkers bool
}

// newClientConfig creates a clientConfig with defaults from internal/config.
func newClientConfig() *clientConfig {
	return &clientConfig{
		app:          config.NewAppConfig(),
		startWorkers: true,
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithSQLite configures SQLite as the database, stored at the given path.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		config.WithDBURL("sqlite:///" + path)(&c.app)
	}
}

// WithPostgres configures PostgreSQL as the database.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		config.WithDBURL(dsn)(&c.app)
	}
}

// WithDBURL sets the raw database URL (sqlite:///path or postgres://...).
func WithDBURL(url string) Option {
	return func(c *clientConfig) {
		config.WithDBURL(url)(&c.app)
	}
}

// WithDataDir sets the data directory for the database and schema templates.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		config.WithDataDir(dir)(&c.app)
	}
}

// WithConfig replaces the whole application configuration. Options applied
// after this one still take effect.
func WithConfig(cfg config.AppConfig) Option {
	return func(c *clientConfig) {
		c.app = cfg
	}
}

// WithOpenAI configures an OpenAI-compatible extraction endpoint with the
// given API key and model.
func WithOpenAI(apiKey, model string) Option {
	return func(c *clientConfig) {
		endpoint := config.NewEndpointWithOptions(
			config.WithAPIKey(apiKey),
			config.WithModel(model),
		)
		config.WithLLMEndpoint(endpoint)(&c.app)
	}
}

// WithLLMEndpoint sets a fully specified extraction endpoint.
func WithLLMEndpoint(e config.Endpoint) Option {
	return func(c *clientConfig) {
		config.WithLLMEndpoint(e)(&c.app)
	}
}

// WithCompleter sets a custom extraction completer, bypassing the OpenAI
// provider. Intended for tests and alternative backends.
func WithCompleter(completer extraction.Completer) Option {
	return func(c *clientConfig) {
		c.completer = completer
	}
}

// WithVectorSearcher sets the vector-similarity searcher used by the
// retrieval strategies. Without one, retrieval falls back to keyword
// matching over stored chunks.
func WithVectorSearcher(s retrieval.VectorSearcher) Option {
	return func(c *clientConfig) {
		c.searcher = s
	}
}

// WithAPIKeys sets the API keys for HTTP API authentication.
func WithAPIKeys(keys ...string) Option {
	return func(c *clientConfig) {
		config.WithAPIKeys(keys)(&c.app)
	}
}

// WithWorkerCount sets the number of extraction queue workers.
func WithWorkerCount(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			config.WithWorkerCount(n)(&c.app)
		}
	}
}

// WithBatchWorkerCount sets the number of batch re-extraction workers.
func WithBatchWorkerCount(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			config.WithBatchWorkerCount(n)(&c.app)
		}
	}
}

// WithTemplateDir sets the directory scanned for schema template YAML files.
func WithTemplateDir(dir string) Option {
	return func(c *clientConfig) {
		config.WithTemplateDir(dir)(&c.app)
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *log.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithoutWorkers skips starting the background worker pools. Queued tasks
// stay pending until a client with workers picks them up.
func WithoutWorkers() Option {
	return func(c *clientConfig) {
		c.startWorkers = false
	}
}
