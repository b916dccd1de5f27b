package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hashwatch/trendtap/internal/dispatcher"
	"github.com/hashwatch/trendtap/internal/phase"
)

// newExploreCmd creates the 'explore' subcommand, which harvests trending
// hashtags per content category from the explore feed.
func newExploreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explore",
		Short: "Harvest trending hashtags from the explore feed",
		Long: `Opens the explore page, discovers the content category buttons, and
crawls each category with a pool of browser sessions. Every intercepted feed
response contributes hashtag/play-count rows; the first category to observe
a hashtag wins.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return runPhase(cmd.Context(), cfg, logger, func(deps runDeps) dispatcher.Phase {
				return phase.NewExplore(
					deps.store,
					deps.factory,
					deps.interceptor(cfg.Explore.CheckBudget, cfg.Explore.PollInterval()),
					deps.pacer,
					phase.ExploreConfig{
						ScrollCount:   cfg.Explore.ScrollCount,
						ScrollWait:    cfg.Explore.ScrollWait(),
						CategoryWait:  cfg.Explore.CategoryWait(),
						NoDataPenalty: cfg.Explore.NoDataPenalty,
					},
					logger,
				)
			})
		},
	}
}
