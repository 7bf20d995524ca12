package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/skip-go/internal/app"
	"github.com/doeshing/skip-go/internal/infrastructure/cli/helpers"
)

// NewCacheCommand creates the cache command with all subcommands
func NewCacheCommand(container *app.Container) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the artifact cache of a context",
	}

	cacheCmd.AddCommand(
		newCacheListCommand(container),
		newCacheClearCommand(container),
		newCacheSizeCommand(container),
	)

	return cacheCmd
}

// newCacheListCommand creates the 'cache list' subcommand
func newCacheListCommand(container *app.Container) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCacheEntries(cmd.OutOrStdout(), container, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "long", "l", false, "Show the parameter set and files of each entry")
	return cmd
}

// newCacheClearCommand creates the 'cache clear' subcommand
func newCacheClearCommand(container *app.Container) *cobra.Command {
	var stage, entry string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearCache(cmd.OutOrStdout(), container, stage, entry)
		},
	}

	cmd.Flags().StringVar(&stage, "stage", "", "Only clear one stage directory (e.g. L_graphs)")
	cmd.Flags().StringVar(&entry, "entry", "", "Only remove the entry with this fingerprint prefix")
	cmd.MarkFlagsMutuallyExclusive("stage", "entry")
	return cmd
}

// newCacheSizeCommand creates the 'cache size' subcommand
func newCacheSizeCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Show cache size",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showCacheSize(cmd.OutOrStdout(), container)
		},
	}
}

// listCacheEntries lists all index records of the selected context
func listCacheEntries(out io.Writer, container *app.Container, long bool) error {
	if container.Workspace == nil {
		return errors.New(ErrWorkspaceUnavailable)
	}

	entries, err := container.Workspace.Entries(container.Options.Context)
	if err != nil {
		return fmt.Errorf("failed to retrieve cache entries: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, MsgNoCacheEntries)
		return nil
	}

	for _, entry := range entries {
		state := "ok"
		if !entry.Populated() {
			state = "empty"
		}
		fmt.Fprintf(out, "%s | %s | %s | %s\n",
			entry.Stage,
			entry.Fingerprint[:min(12, len(entry.Fingerprint))],
			state,
			entry.ModTime.Format(TimestampFormat))
		if long {
			fmt.Fprintf(out, "    params: %s\n", entry.Params)
			for _, f := range entry.Attributes.Files() {
				fmt.Fprintf(out, "    file:   %s\n", f)
			}
		}
	}

	return nil
}

// clearCache removes a single entry, one stage or the whole cache
func clearCache(out io.Writer, container *app.Container, stage, entry string) error {
	if container.Workspace == nil {
		return errors.New(ErrWorkspaceUnavailable)
	}
	name := container.Options.Context

	if entry != "" {
		removed, err := container.Workspace.RemoveEntry(name, entry)
		if err != nil {
			return fmt.Errorf("failed to remove cache entry: %w", err)
		}
		fmt.Fprintf(out, "Removed %s entry %s\n", removed.Stage, removed.Fingerprint)
		return nil
	}

	n, err := container.Workspace.Clear(name, stage)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Fprintf(out, "Removed %d cache entries from %s\n", n, name)
	return nil
}

// showCacheSize displays the disk usage of the selected context
func showCacheSize(out io.Writer, container *app.Container) error {
	if container.Workspace == nil {
		return errors.New(ErrWorkspaceUnavailable)
	}

	name := container.Options.Context
	size, err := container.Workspace.Size(name)
	if err != nil {
		return fmt.Errorf("failed to calculate cache size: %w", err)
	}

	fmt.Fprintf(out, "Context: %s\nDirectory: %s\nSize: %s\n",
		name,
		container.Workspace.Dir(name),
		helpers.FormatSize(size))
	return nil
}
