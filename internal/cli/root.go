// Package cli implements the hoopsdaily command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fortuna/hoopsdaily/internal/config"
)

type rootOptions struct {
	configPath string
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "hoopsdaily",
		Short: "NBA daily box-score scraper and blurb generator",
		Long: `hoopsdaily scrapes ESPN box scores one calendar day at a time, keeps a
season-long player ledger, and writes a short list of notable blurbs (first
starts, minutes surges) alongside each day's results.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newScrapeCmd(opts))
	root.AddCommand(newBackfillCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newPlayerCmd(opts))
	return root
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context; long runs stop between dates and save what they have.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
