// Package kgraph provides a library for domain-aware, graph-augmented
// knowledge base retrieval.
//
// Kgraph extracts typed entities and relationships from ingested documents
// using a schema-driven LLM pipeline, stores them in a per-knowledge-base
// graph, and answers retrieval queries either from vector/keyword search
// alone or augmented with graph neighborhood expansion.
//
// Basic usage:
//
//	client, err := kgraph.New(
//	    kgraph.WithSQLite(".kgraph/data.db"),
//	    kgraph.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "gpt-4o-mini"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Define a schema and ingest a document
//	domain, err := client.Schemas().CreateDomain(ctx, "medical", "", schema.VisibilityPrivate, "")
//	doc, err := client.Documents().Ingest(ctx, "kb-1", domain.ID(), "Admission note", "", content)
//
//	// Retrieve with the knowledge base's configured strategy
//	strategy := client.Strategies().For(ctx, "kb-1")
//	results, err := strategy.Retrieve(ctx, retrieval.NewQuery("kb-1", "penicillin allergy"))
package kgraph

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/inquira/kgraph/application/handler"
	"github.com/inquira/kgraph/application/service"
	"github.com/inquira/kgraph/application/worker"
	"github.com/inquira/kgraph/domain/extraction"
	"github.com/inquira/kgraph/domain/retrieval"
	"github.com/inquira/kgraph/domain/task"
	"github.com/inquira/kgraph/infrastructure/api"
	"github.com/inquira/kgraph/infrastructure/api/middleware"
	v1 "github.com/inquira/kgraph/infrastructure/api/v1"
	"github.com/inquira/kgraph/infrastructure/audit"
	"github.com/inquira/kgraph/infrastructure/persistence"
	"github.com/inquira/kgraph/infrastructure/provider"
	"github.com/inquira/kgraph/infrastructure/seed"
	"github.com/inquira/kgraph/internal/config"
	"github.com/inquira/kgraph/internal/database"
	"github.com/inquira/kgraph/internal/log"
	"github.com/inquira/kgraph/internal/mcp"
)

// ErrClientClosed is returned when an operation is attempted on a closed
// client.
var ErrClientClosed = errors.New("kgraph client is closed")

// Client is the main entry point for the kgraph library. The background
// worker pools start automatically on creation when an extraction endpoint
// is configured.
type Client struct {
	db database.Database

	// Domain stores
	domainStore       persistence.DomainStore
	entityTypeStore   persistence.EntityTypeStore
	relationTypeStore persistence.RelationshipTypeStore
	changeStore       persistence.ChangeStore
	graphStore        persistence.GraphStore
	documentStore     persistence.DocumentStore
	chunkStore        persistence.ChunkStore
	jobStore          persistence.JobStore
	taskStore         persistence.TaskStore

	// Application services
	schemas    *service.SchemaService
	documents  *service.DocumentService
	extraction *service.ExtractionService
	queries    *service.GraphQueryService
	jobs       *service.JobService
	registry   *service.StrategyRegistry

	// Worker pools (nil when extraction is not configured)
	stopWorkers context.CancelFunc
	workers     *errgroup.Group

	cfg    config.AppConfig
	logger *log.Logger
	closed atomic.Bool
}

// New creates a new Client with the given options. Worker pools start
// automatically unless WithoutWorkers is set or no extraction endpoint is
// configured.
func New(opts ...Option) (*Client, error) {
	cc := newClientConfig()
	for _, opt := range opts {
		opt(cc)
	}
	cfg := cc.app

	logger := cc.logger
	if logger == nil {
		logger = log.NewLogger(cfg)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, cfg.DBURL())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := persistence.AutoMigrate(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(err, errClose)
	}

	client := &Client{
		db:                db,
		domainStore:       persistence.NewDomainStore(db),
		entityTypeStore:   persistence.NewEntityTypeStore(db),
		relationTypeStore: persistence.NewRelationshipTypeStore(db),
		changeStore:       persistence.NewChangeStore(db),
		graphStore:        persistence.NewGraphStore(db),
		documentStore:     persistence.NewDocumentStore(db),
		chunkStore:        persistence.NewChunkStore(db),
		jobStore:          persistence.NewJobStore(db),
		taskStore:         persistence.NewTaskStore(db),
		cfg:               cfg,
		logger:            logger,
	}

	auditSink := audit.NewLogSink(logger)
	client.schemas = service.NewSchemaService(
		client.domainStore, client.entityTypeStore, client.relationTypeStore,
		client.changeStore, client.documentStore, auditSink, db, logger,
	)
	client.queries = service.NewGraphQueryService(client.graphStore, cfg.Graph(), logger)
	client.documents = service.NewDocumentService(
		client.documentStore, client.chunkStore, client.graphStore, client.taskStore, logger,
	)
	client.jobs = service.NewJobService(client.jobStore, client.documentStore, client.taskStore, logger)

	completer := cc.completer
	if completer == nil && cfg.LLMEndpoint() != nil && cfg.LLMEndpoint().IsConfigured() {
		// One limiter gates every model call, across both worker pools.
		limiter := rate.NewLimiter(rate.Limit(cfg.Extraction().RatePerSecond()), cfg.Extraction().RateBurst())
		completer = provider.NewOpenAICompleter(*cfg.LLMEndpoint(), limiter)
	}
	if completer != nil {
		client.extraction = service.NewExtractionService(
			client.graphStore, completer, cfg.Extraction().SimilarityThreshold(), logger,
		)
	}

	searcher := cc.searcher
	if searcher == nil {
		searcher = persistence.NewKeywordSearcher(db)
	}
	client.registry = service.NewStrategyRegistry(service.NewVectorOnlyStrategy(searcher), client.graphStore)
	client.registry.Register(service.NewGraphAugmentedStrategy(
		searcher, client.graphStore, client.queries, client.chunkStore, logger,
	))

	seeder := seed.NewSeeder(client.domainStore, client.entityTypeStore, client.relationTypeStore, logger)
	if err := seeder.SeedDir(ctx, cfg.TemplateDir()); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("seed schema templates: %w", err), errClose)
	}

	if cc.startWorkers {
		client.startWorkers()
	}

	return client, nil
}

// startWorkers creates and runs the two worker pools. Extraction tasks and
// batch jobs run in separate pools so a long batch run never starves
// document extraction.
func (c *Client) startWorkers() {
	if c.extraction == nil {
		c.logger.Info("extraction endpoint not configured, task workers disabled")
		return
	}

	extractHandler := handler.NewExtractHandler(
		c.documentStore, c.chunkStore, c.schemas, c.extraction,
		c.cfg.Extraction().ChunkParallelism(), c.logger,
	)
	reextractHandler := handler.NewReextractHandler(
		c.jobStore, c.documentStore, c.graphStore, c.schemas, extractHandler,
		c.cfg.Extraction().JobSoftTimeLimit(), c.logger,
	)

	extractPool := worker.NewPool(c.taskStore, c.cfg.WorkerCount(), c.cfg.QueuePollInterval(), c.logger)
	extractPool.Register(task.OperationExtractDocument, extractHandler)

	batchPool := worker.NewPool(c.taskStore, c.cfg.BatchWorkerCount(), c.cfg.QueuePollInterval(), c.logger)
	batchPool.Register(task.OperationReextractBatch, reextractHandler)

	ctx, cancel := context.WithCancel(context.Background())
	c.stopWorkers = cancel
	c.workers = new(errgroup.Group)
	c.workers.Go(func() error { return extractPool.Run(ctx) })
	c.workers.Go(func() error { return batchPool.Run(ctx) })
}

// Close stops the worker pools and releases all resources.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	if c.stopWorkers != nil {
		c.stopWorkers()
		if err := c.workers.Wait(); err != nil {
			c.logger.Warn("worker shutdown", "error", err)
		}
	}

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("kgraph client closed")
	return nil
}

// Schemas returns the domain schema service.
func (c *Client) Schemas() *service.SchemaService { return c.schemas }

// Documents returns the document ingestion service.
func (c *Client) Documents() *service.DocumentService { return c.documents }

// Jobs returns the batch re-extraction job service.
func (c *Client) Jobs() *service.JobService { return c.jobs }

// GraphQueries returns the graph query service.
func (c *Client) GraphQueries() *service.GraphQueryService { return c.queries }

// Strategies returns the retrieval strategy registry.
func (c *Client) Strategies() *service.StrategyRegistry { return c.registry }

// Extraction returns the extraction service, or nil when no extraction
// endpoint is configured.
func (c *Client) Extraction() *service.ExtractionService { return c.extraction }

// Retrieve answers a query with the knowledge base's selected strategy.
func (c *Client) Retrieve(ctx context.Context, kbID, text string) ([]retrieval.Result, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.registry.For(ctx, kbID).Retrieve(ctx, retrieval.NewQuery(kbID, text))
}

// Config returns the effective configuration.
func (c *Client) Config() config.AppConfig { return c.cfg }

// Logger returns the client logger.
func (c *Client) Logger() *log.Logger { return c.logger }

// APIServer builds an HTTP server with the v1 REST API mounted under
// /api/v1, write-protected by the configured API keys.
func (c *Client) APIServer(addr string) *api.Server {
	srv := api.NewServer(addr, c.logger)
	authCfg := middleware.NewAuthConfig(c.cfg.APIKeys())

	srv.Router().Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKey(authCfg))
		r.Mount("/domains", v1.NewDomainsRouter(c.schemas, c.logger).Routes())
		r.Mount("/documents", v1.NewDocumentsRouter(c.documents, c.logger).Routes())
		r.Mount("/graph", v1.NewGraphRouter(c.queries, c.logger).Routes())
		r.Mount("/retrieve", v1.NewRetrieveRouter(c.registry, c.logger).Routes())
		r.Mount("/jobs", v1.NewJobsRouter(c.jobs, c.schemas, c.logger).Routes())
	})

	return srv
}

// MCPServer builds the MCP server exposing retrieval and graph tools.
func (c *Client) MCPServer() *mcp.Server {
	return mcp.NewServer(c.registry, c.queries, c.logger.Slog())
}

// Completer is re-exported so custom extraction backends can be plugged in
// without importing the extraction package.
type Completer = extraction.Completer
