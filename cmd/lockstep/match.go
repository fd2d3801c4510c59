package main

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lockstep-fin/lockstep/internal/match"
	"github.com/lockstep-fin/lockstep/internal/pattern"
)

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Run document-to-transaction matching",
	}

	cmd.AddCommand(matchRunCmd())

	return cmd
}

func matchRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Match pending inbox items against ledger transactions",
		Long: `Walk every pending inbox item of the tenant, discover candidate
transactions by embedding similarity, score them, and record suggestions.
Candidates that clear the merchant-pattern eligibility gate are applied
automatically; the rest await review via 'lockstep suggestions'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			tenant, err := requireTenant()
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			provider, err := initEmbeddingProvider()
			if err != nil {
				return err
			}

			thresholds := pattern.DefaultThresholds()
			if v := viper.GetFloat64("matching.pattern_distance"); v > 0 {
				thresholds.DistanceThreshold = v
			}
			if v := viper.GetInt("matching.min_confirmed"); v > 0 {
				thresholds.MinConfirmed = v
			}
			if v := viper.GetFloat64("matching.min_accuracy"); v > 0 {
				thresholds.MinAccuracy = v
			}

			opts := match.DefaultOptions()
			if v := viper.GetFloat64("matching.candidate_distance"); v > 0 {
				opts.CandidateDistance = v
			}
			if v := viper.GetInt("matching.candidate_window_days"); v > 0 {
				opts.CandidateWindowDays = v
			}

			engine := match.NewEngine(store, provider, pattern.NewAnalyzer(store, thresholds), opts)

			items, err := engine.PendingItems(ctx, tenant)
			if err != nil {
				return fmt.Errorf("failed to list pending inbox items: %w", err)
			}
			if len(items) == 0 {
				fmt.Println(infoStyle.Render("No pending inbox items to match."))
				return nil
			}

			bar := progressbar.NewOptions(len(items),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan][bold]Matching inbox items...[reset]"),
			)

			stats, err := engine.ProcessTenant(ctx, tenant, func() {
				_ = bar.Add(1)
			})
			if err != nil {
				return err
			}
			_ = bar.Finish()
			fmt.Println()

			fmt.Println(headerStyle.Render("Matching complete"))
			fmt.Printf("  Processed:    %d\n", stats.ItemsProcessed)
			fmt.Printf("  %s %d\n", successStyle.Render("Auto-matched:"), stats.AutoMatched)
			fmt.Printf("  Suggested:    %d\n", stats.Suggested)
			fmt.Printf("  No match:     %d\n", stats.NoMatch)
			if stats.Errors > 0 {
				fmt.Printf("  %s %d\n", warningStyle.Render("Errors:"), stats.Errors)
			}
			fmt.Printf("  Duration:     %s\n", stats.Duration.Round(10*time.Millisecond))

			return nil
		},
	}
}
