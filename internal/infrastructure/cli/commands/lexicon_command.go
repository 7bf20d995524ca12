package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/skip-go/internal/app"
	"github.com/doeshing/skip-go/internal/application/graph"
	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/domain"
)

// NewLexiconCommand creates the lexicon command and its 'add' subcommand
func NewLexiconCommand(container *app.Container) *cobra.Command {
	var src graph.LexiconSources
	params := domain.DefaultLexiconParams()

	cmd := &cobra.Command{
		Use:   "lexicon",
		Short: "Build the lexicon transducer L.fst",
		Long: `Build the lexicon transducer from a phone table, a word table and a
pronunciation lexicon. Repeated runs with unchanged inputs reuse the cached
transducer.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return buildLexicon(cmd, container, src, params)
		},
	}

	cmd.Flags().StringVar(&src.PhonesFile, "phones", "", "Phone symbol table")
	cmd.Flags().StringVar(&src.WordsFile, "words", "", "Word symbol table")
	cmd.Flags().StringVar(&src.LexiconFile, "lexicon", "", "Pronunciation lexicon (word phone...)")
	cmd.Flags().BoolVar(&params.AddSilence, "silence", params.AddSilence, "Allow optional silence between words")
	cmd.Flags().Float64Var(&params.SilenceProbability, "silence-prob", params.SilenceProbability, "Probability of inter-word silence")
	_ = cmd.MarkFlagRequired("phones")
	_ = cmd.MarkFlagRequired("words")
	_ = cmd.MarkFlagRequired("lexicon")

	cmd.AddCommand(newLexiconAddCommand(container))
	return cmd
}

// newLexiconAddCommand creates the 'lexicon add' subcommand
func newLexiconAddCommand(container *app.Container) *cobra.Command {
	var fst, phones, words string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register an existing lexicon transducer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return registerLexicon(cmd.OutOrStdout(), container, fst, phones, words)
		},
	}

	cmd.Flags().StringVar(&fst, "fst", "", "Compiled lexicon transducer")
	cmd.Flags().StringVar(&phones, "phones", "", "Phone symbol table")
	cmd.Flags().StringVar(&words, "words", "", "Word symbol table")
	_ = cmd.MarkFlagRequired("fst")
	_ = cmd.MarkFlagRequired("phones")
	_ = cmd.MarkFlagRequired("words")
	return cmd
}

// buildLexicon runs the lexicon recipe in the selected context
func buildLexicon(cmd *cobra.Command, container *app.Container, src graph.LexiconSources, params domain.LexiconParams) error {
	c, err := openContext(container)
	if err != nil {
		return err
	}

	L, outcome, err := runBuild(cmd, "building lexicon", func() (domain.LexiconGraph, recipe.Outcome, error) {
		return c.MakeL(cmd.Context(), src, params)
	})
	if err != nil {
		return fmt.Errorf("failed to build lexicon: %w", err)
	}

	displayBuild(cmd.OutOrStdout(), domain.StageLexicon, outcome,
		field{"fst", L.Filename},
		field{"phones", L.PhonesFile},
		field{"words", L.WordsFile},
		field{"lexicon", L.LexiconFile},
		field{"log", outcome.LogPath})
	return nil
}

// registerLexicon records an existing lexicon transducer as the context default
func registerLexicon(out io.Writer, container *app.Container, fst, phones, words string) error {
	c, err := openContext(container)
	if err != nil {
		return err
	}
	if err := requireFiles(fst, phones, words); err != nil {
		return err
	}
	L, err := c.RegisterL(fst, phones, words)
	if err != nil {
		return fmt.Errorf("failed to register lexicon: %w", err)
	}
	displayRegistered(out, "lexicon",
		field{"fst", L.Filename},
		field{"phones", L.PhonesFile},
		field{"words", L.WordsFile})
	return nil
}
