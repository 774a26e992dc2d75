package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inquira/kgraph"
	"github.com/inquira/kgraph/internal/log"
)

func stdioCmd() *cobra.Command {
	var (
		envFile  string
		dataDir  string
		dbURL    string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Start MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

This allows AI assistants to retrieve knowledge base content and query the
entity graph. Configuration is loaded from environment variables and .env
file. Background workers do not run in this mode; use serve for ingestion.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio(envFile, dataDir, dbURL, logLevel)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory")
	cmd.Flags().StringVar(&dbURL, "db-url", "", "Database URL")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level")

	return cmd
}

func runStdio(envFile, dataDir, dbURL, logLevel string) error {
	cfg, err := loadConfig(envFile, dataDir, dbURL, logLevel)
	if err != nil {
		return err
	}

	// Stdout carries the MCP protocol, so logs go to stderr.
	logger := log.NewLoggerWithWriter(os.Stderr, cfg.LogFormat(), cfg.LogLevel())
	logger.Info("starting MCP server",
		"version", version,
		"data_dir", cfg.DataDir())

	client, err := kgraph.New(
		kgraph.WithConfig(cfg),
		kgraph.WithLogger(logger),
		kgraph.WithoutWorkers(),
	)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("close client", "error", err)
		}
	}()

	return client.MCPServer().ServeStdio()
}
