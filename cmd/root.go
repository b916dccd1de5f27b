// Package cmd defines and implements the CLI commands for the trendtap
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hashwatch/trendtap/internal/config"
	"github.com/hashwatch/trendtap/internal/logging"
	"github.com/hashwatch/trendtap/internal/metrics"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trendtap",
		Short: "Collects trending hashtag statistics from the TikTok explore feed",
		Long: `trendtap drives a pool of headless browser sessions against the TikTok
explore feed, intercepting the site's internal API responses instead of
parsing rendered pages. The explore command harvests trending hashtags per
content category; the hashtags command then fetches cumulative video counts
for every hashtag that has no fresh detail row today.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus TRENDTAP_* env)")

	cmd.AddCommand(newExploreCmd())
	cmd.AddCommand(newHashtagsCmd())

	return cmd
}

// Execute is the main entry point. It installs signal handling so an
// interrupt drains workers instead of killing them mid-item.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap loads config and builds the base logger shared by both
// subcommands.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	metrics.Init()
	return cfg, logger, nil
}
