package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/doeshing/skip-go/internal/app"
	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/application/workspace"
	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/infrastructure/cli/helpers"
)

// field is one labelled path in a build report.
type field struct {
	label string
	value string
}

// openContext opens the context selected with --context.
func openContext(container *app.Container) (*workspace.Context, error) {
	if container.Workspace == nil {
		return nil, errors.New(ErrWorkspaceUnavailable)
	}
	c, err := container.Workspace.Open(container.Options.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to open context %s: %w", container.Options.Context, err)
	}
	return c, nil
}

// runBuild runs fn behind a spinner when stderr is a terminal.
func runBuild[T any](cmd *cobra.Command, label string, fn func() (T, recipe.Outcome, error)) (T, recipe.Outcome, error) {
	errOut := cmd.ErrOrStderr()
	if helpers.IsTerminal(errOut) {
		spinner := helpers.NewSpinner(errOut, label)
		spinner.Start()
		defer spinner.Stop()
	}
	return fn()
}

// displayBuild prints the artifact paths and how the request was served.
func displayBuild(out io.Writer, stage string, outcome recipe.Outcome, fields ...field) {
	status := "built"
	if outcome.CacheHit {
		status = "cached"
	}
	fingerprint := outcome.Fingerprint
	if len(fingerprint) > 12 {
		fingerprint = fingerprint[:12]
	}
	fmt.Fprintf(out, "%s: %s (fingerprint %s)\n", stage, status, fingerprint)
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		fmt.Fprintf(out, "  %-14s %s\n", f.label+":", f.value)
	}
}

// displayRegistered prints an artifact registered without a build.
func displayRegistered(out io.Writer, kind string, fields ...field) {
	fmt.Fprintf(out, "%s: registered\n", kind)
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		fmt.Fprintf(out, "  %-14s %s\n", f.label+":", f.value)
	}
}

// requireFiles fails with a missing dependency for the first absent path.
func requireFiles(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return &domain.MissingDependencyError{Path: p}
		}
	}
	return nil
}

// registeredDefault fills an omitted flag from the context registry and
// fails when neither is set.
func registeredDefault(value *string, registered, flag, kind string) error {
	if *value == "" {
		*value = registered
	}
	if *value == "" {
		return fmt.Errorf("--%s is required unless a %s is registered with '%s add'", flag, kind, kind)
	}
	return nil
}

// lengthFields lists the duration files of a decode or alignment.
func lengthFields(l domain.Lengths) []field {
	return []field{
		{"word lengths", l.WordLens},
		{"phone lengths", l.PhoneLens},
	}
}
