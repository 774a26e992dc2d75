// Package main is the entry point for the kgraph CLI.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inquira/kgraph/internal/config"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kgraph",
		Short: "Kgraph knowledge graph retrieval server",
		Long:  `Kgraph extracts schema-typed entities and relationships from knowledge base documents and serves graph-augmented retrieval.`,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(stdioCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kgraph version %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}

// loadConfig loads configuration from .env file and environment variables,
// then applies CLI flag overrides.
func loadConfig(envFile, dataDir, dbURL, logLevel string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}

	// CLI flags take precedence over env vars
	if dataDir != "" {
		config.WithDataDir(dataDir)(&cfg)
	}
	if dbURL != "" {
		config.WithDBURL(dbURL)(&cfg)
	}
	if logLevel != "" {
		config.WithLogLevel(logLevel)(&cfg)
	}

	return cfg, nil
}

// maskDBURL hides credentials in a database URL for logging.
func maskDBURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	scheme := strings.Index(url, "://")
	if scheme < 0 {
		return url
	}
	return url[:scheme+3] + "***" + url[at:]
}
