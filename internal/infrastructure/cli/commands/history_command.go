package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/skip-go/internal/app"
	"github.com/doeshing/skip-go/internal/infrastructure/cli/helpers"
	"github.com/doeshing/skip-go/internal/infrastructure/history"
)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the build history",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(container),
		newHistoryStatsCommand(container),
		newHistoryClearCommand(container),
	)

	return historyCmd
}

// newHistoryListCommand creates the 'history list' subcommand
func newHistoryListCommand(container *app.Container) *cobra.Command {
	var limit int
	var stage string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent builds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistoryEntries(cmd.OutOrStdout(), container, limit, stage)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultHistoryLimit, "Max entries to show")
	cmd.Flags().StringVar(&stage, "stage", "", "Only show one stage (e.g. HCLG_graphs)")
	return cmd
}

// newHistoryStatsCommand creates the 'history stats' subcommand
func newHistoryStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache hit rates and build times per stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistoryStats(cmd.OutOrStdout(), container)
		},
	}
}

// newHistoryClearCommand creates the 'history clear' subcommand
func newHistoryClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the build history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearHistory(container)
		},
	}
}

// listHistoryEntries lists recent build records, newest first
func listHistoryEntries(out io.Writer, container *app.Container, limit int, stage string) error {
	store := container.HistoryStore
	if store == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}

	records, err := store.Records(limit, stage)
	if err != nil {
		return fmt.Errorf("failed to retrieve history records: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	for _, rec := range records {
		result := "built"
		switch {
		case !rec.Success:
			result = "failed"
		case rec.CacheHit:
			result = "cached"
		}
		fmt.Fprintf(out, "%s | %s/%s | %s | %s\n",
			rec.Timestamp.Format(TimestampFormat),
			rec.Context,
			rec.Stage,
			result,
			helpers.FormatDuration(rec.DurationMS))
		if rec.Error != "" {
			fmt.Fprintf(out, "    %s\n", rec.Error)
		}
	}

	return nil
}

// showHistoryStats displays per-stage cache hit rates
func showHistoryStats(out io.Writer, container *app.Container) error {
	store := container.HistoryStore
	if store == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}

	records, err := store.Records(MaxHistoryAnalysisRecords, "")
	if err != nil {
		return fmt.Errorf("failed to retrieve history for analysis: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	stats := history.Summarize(records)
	requests, hits, failures := helpers.TotalBuilds(stats)
	fmt.Fprintf(out, "Requests analyzed: %d\nCache hit rate: %.1f%%\nFailures: %d\n",
		requests,
		helpers.CalculateSuccessRate(hits, requests),
		failures)

	fmt.Fprintln(out, "Per stage:")
	for _, s := range stats {
		fmt.Fprintf(out, "  %-14s %4d requests  %5.1f%% cached  %d failed  total %s  last %s\n",
			s.Stage,
			s.Builds,
			s.HitRate()*100,
			s.Failures,
			helpers.FormatDuration(s.TotalMS),
			helpers.FormatAge(s.LastBuildAt))
	}
	return nil
}

// clearHistory clears the history store
func clearHistory(container *app.Container) error {
	if container.HistoryStore == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}

	if err := container.HistoryStore.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	return nil
}
