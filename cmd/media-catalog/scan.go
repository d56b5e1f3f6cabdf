package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"media-catalog/internal/media"
	"media-catalog/internal/startup"
)

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan every user's media directory and reconcile the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := startup.ReadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.indexer.ScanNewFiles(cmd.Context())
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d files for %d users: %d inserted, %d deleted, %d failed chunks (%v)\n",
				result.Scanned, result.Users, result.Inserted, result.Deleted, result.FailedChunks, result.Duration)
			return nil
		},
	}
}

func newPreviewsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "previews",
		Short: "Manage derivative images",
	}
	cmd.AddCommand(newPreviewsGenerateCmd())
	return cmd
}

func newPreviewsGenerateCmd() *cobra.Command {
	var background bool
	var target string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate every missing preview and thumbnail",
		Long: `Generate walks the whole catalog and creates missing derivatives.

By default it runs one worker per usable CPU (DERIVATIVE_WORKERS overrides the
count). With --background it generates one file at a time and pauses while
the memory monitor reports pressure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := startup.ReadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			b, err := a.backfillFor(target)
			if err != nil {
				return err
			}

			generate := b.GenerateAllForeground
			if background {
				a.monitor.Start(cmd.Context())
				generate = b.GenerateAllBackground
			}
			summaries, err := generate(cmd.Context())
			printSummaries(cmd, summaries)
			return err
		},
	}
	cmd.Flags().BoolVar(&background, "background", false, "Generate sequentially, throttled by memory pressure")
	cmd.Flags().StringVar(&target, "target", "all", "Derivative tree to fill: preview, thumbnail or all")
	return cmd
}

func printSummaries(cmd *cobra.Command, summaries map[string]media.Summary) {
	targets := make([]string, 0, len(summaries))
	for t := range summaries {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	out := cmd.OutOrStdout()
	for _, t := range targets {
		s := summaries[t]
		fmt.Fprintf(out, "%-10s generated=%d present=%d missing_source=%d failed=%d\n",
			t, s.Generated, s.Present, s.MissingSource, s.Failed)
	}
}
