package commands

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/version"
)

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Show skip version information",
		Annotations: configOnly(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), version.Version)
				return nil
			}
			return displayVersionInformation(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	return cmd
}

// displayVersionInformation prints the build metadata and the cache index
// format this binary reads and writes
func displayVersionInformation(out io.Writer) error {
	fmt.Fprintf(out, "skip version %s\n", version.Version)
	if version.Commit != "" {
		fmt.Fprintf(out, "Commit: %s\n", version.Commit)
	}
	if version.BuildDate != "" {
		fmt.Fprintf(out, "Built: %s\n", version.BuildDate)
	}
	fmt.Fprintf(out, "Index format: %s\n", domain.IndexMagic)
	fmt.Fprintf(out, "Go version: %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}
