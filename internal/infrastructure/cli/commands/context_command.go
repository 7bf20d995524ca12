package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/skip-go/internal/app"
	"github.com/doeshing/skip-go/internal/infrastructure/cli/helpers"
)

// NewContextCommand creates the context command with all subcommands
func NewContextCommand(container *app.Container) *cobra.Command {
	contextCmd := &cobra.Command{
		Use:   "context",
		Short: "Manage build contexts",
	}

	contextCmd.AddCommand(
		newContextListCommand(container),
		newContextRemoveCommand(container),
	)

	return contextCmd
}

// newContextListCommand creates the 'context list' subcommand
func newContextListCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List contexts with their entry counts and sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listContexts(cmd.OutOrStdout(), container)
		},
	}
}

// newContextRemoveCommand creates the 'context rm' subcommand
func newContextRemoveCommand(container *app.Container) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove"},
		Short:   "Delete a context and everything built in it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return removeContext(cmd, container, args[0], yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// listContexts prints one line per context
func listContexts(out io.Writer, container *app.Container) error {
	if container.Workspace == nil {
		return errors.New(ErrWorkspaceUnavailable)
	}

	infos, err := container.Workspace.List()
	if err != nil {
		return fmt.Errorf("failed to list contexts: %w", err)
	}
	if len(infos) == 0 {
		fmt.Fprintln(out, MsgNoContexts)
		return nil
	}

	for _, info := range infos {
		marker := " "
		if info.Name == container.Options.Context {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s | %d entries | %s | modified %s\n",
			marker,
			info.Name,
			info.Entries,
			helpers.FormatSize(info.Size),
			helpers.FormatAge(info.ModTime))
	}
	return nil
}

// removeContext deletes a context after confirmation
func removeContext(cmd *cobra.Command, container *app.Container, name string, yes bool) error {
	if container.Workspace == nil {
		return errors.New(ErrWorkspaceUnavailable)
	}

	out := cmd.OutOrStdout()
	if !yes {
		reader := bufio.NewReader(cmd.InOrStdin())
		if !helpers.PromptForConfirmation(out, reader, fmt.Sprintf("Remove context %s?", name)) {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	if err := container.Workspace.Remove(name); err != nil {
		return fmt.Errorf("failed to remove context: %w", err)
	}
	fmt.Fprintf(out, "Removed context %s\n", name)
	return nil
}
