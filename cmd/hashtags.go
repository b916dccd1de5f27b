package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hashwatch/trendtap/internal/dispatcher"
	"github.com/hashwatch/trendtap/internal/phase"
)

// newHashtagsCmd creates the 'hashtags' subcommand, which backfills video
// counts for hashtags harvested by a previous explore run.
func newHashtagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hashtags",
		Short: "Fetch video counts for pending hashtags",
		Long: `Queries the backlog of hashtags that have no detail row updated today,
then visits each hashtag page and intercepts the challenge-detail response
to record its cumulative video count. Safe to rerun; finished hashtags are
skipped until the next day.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return runPhase(cmd.Context(), cfg, logger, func(deps runDeps) dispatcher.Phase {
				return phase.NewHashtag(
					deps.store,
					deps.interceptor(cfg.Hashtag.CheckBudget, cfg.Hashtag.PollInterval()),
					deps.pacer,
					deps.clock,
					phase.HashtagConfig{},
					logger,
				)
			})
		},
	}
}
