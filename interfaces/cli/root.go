// Package cli implements memctl, an operator tool that drives the memory
// service directly without going through HTTP.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/services"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/config"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/di"

	"github.com/spf13/cobra"
)

type options struct {
	configFile string
	driver     string
	sqlitePath string
	verbose    bool
}

// NewRootCommand builds the memctl command tree
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "memctl",
		Short: "Operate the memory store",
		Long: `memctl - manage and query the memory store.

Examples:
  memctl schema init
  memctl add --user u1 --text "buy milk"
  memctl search --user u1 --q milk --limit 5`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&opts.driver, "driver", "", "store driver: neo4j, sqlite or memory")
	rootCmd.PersistentFlags().StringVar(&opts.sqlitePath, "sqlite-path", "", "SQLite database file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(newSchemaCommand(opts))
	rootCmd.AddCommand(newPingCommand(opts))
	rootCmd.AddCommand(newAddCommand(opts))
	rootCmd.AddCommand(newSearchCommand(opts))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

func (o *options) loadConfig() (*config.Config, error) {
	if o.configFile != "" {
		if err := os.Setenv("CONFIG_FILE", o.configFile); err != nil {
			return nil, err
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if o.driver != "" {
		cfg.StoreDriver = o.driver
	}
	if o.sqlitePath != "" {
		cfg.SQLitePath = o.sqlitePath
	}
	cfg.LogLevel = "warn"
	if o.verbose {
		cfg.LogLevel = "debug"
	}
	cfg.EnableMetrics = false
	cfg.EnableTracing = false

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openService wires a container and returns its service together with the
// cleanup that closes the store.
func (o *options) openService(ctx context.Context) (*services.MemoryService, func(), error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return container.Service, cleanup, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
