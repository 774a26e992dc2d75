package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/inquira/kgraph"
	"github.com/inquira/kgraph/internal/log"
)

func serveCmd() *cobra.Command {
	var (
		addr    string
		envFile string
		// CLI flags override env vars
		dataDir  string
		dbURL    string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. CLI flags

Environment variables:
  HOST                         Host to bind to (default: 0.0.0.0)
  PORT                         Port to listen on (default: 8080)
  DATA_DIR                     Data directory (default: ~/.kgraph)
  DB_URL                       Database URL (default: sqlite:///{data_dir}/kgraph.db)
  LOG_LEVEL                    Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                   Log format: pretty, json (default: pretty)
  API_KEYS                     Comma-separated list of valid API keys
  TEMPLATE_DIR                 Schema template directory (default: {data_dir}/schemas)

  LLM_ENDPOINT_*               Extraction model endpoint configuration
    BASE_URL                   Base URL (e.g., https://api.openai.com/v1)
    MODEL                      Model identifier
    API_KEY                    API key for authentication
    TIMEOUT                    Request timeout in seconds (default: 60)
    MAX_RETRIES                Retry attempts (default: 5)
    MAX_TOKENS                 Completion token limit (default: 4000)

  EXTRACTION_RATE_PER_SECOND   Shared LLM call rate limit (default: 2)
  EXTRACTION_RATE_BURST        Rate limiter burst (default: 4)
  EXTRACTION_CHUNK_PARALLELISM Concurrent chunks per document (default: 4)
  EXTRACTION_SIMILARITY_THRESHOLD  Entity dedup threshold (default: 0.9)
  EXTRACTION_JOB_SOFT_TIME_LIMIT_SECONDS  Batch job soft time limit (default: 1800)

  WORKER_COUNT                 Extraction queue workers (default: 2)
  BATCH_WORKER_COUNT           Batch job workers (default: 1)
  GRAPH_QUERY_TIMEOUT_SECONDS  Graph query timeout (default: 5)
  GRAPH_ROW_CAP                Max rows per graph query (default: 2000)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, envFile, dataDir, dbURL, logLevel)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Address to listen on (overrides HOST/PORT)")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides DATA_DIR env var)")
	cmd.Flags().StringVar(&dbURL, "db-url", "", "Database URL (overrides DB_URL env var)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (overrides LOG_LEVEL env var)")

	return cmd
}

func runServe(addr, envFile, dataDir, dbURL, logLevel string) error {
	cfg, err := loadConfig(envFile, dataDir, dbURL, logLevel)
	if err != nil {
		return err
	}

	logger := log.Configure(cfg)
	logger.Info("starting kgraph",
		"version", version,
		"db_url", maskDBURL(cfg.DBURL()),
		"data_dir", cfg.DataDir())

	client, err := kgraph.New(
		kgraph.WithConfig(cfg),
		kgraph.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("close client", "error", err)
		}
	}()

	if addr == "" {
		addr = cfg.Addr()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return client.APIServer(addr).Run(ctx)
}
