package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/skip-go/internal/app"
	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/domain"
)

// NewGrammarCommand creates the grammar command with its subcommands
func NewGrammarCommand(container *app.Container) *cobra.Command {
	var words, transcripts string
	params := domain.DefaultGrammarParams()

	cmd := &cobra.Command{
		Use:   "grammar",
		Short: "Estimate an n-gram grammar G.fst from transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return buildGrammar(cmd, container, words, transcripts, params)
		},
	}

	cmd.Flags().StringVar(&words, "words", "", "Word symbol table (default: the registered lexicon's)")
	cmd.Flags().StringVar(&transcripts, "transcripts", "", "Training transcripts (utterance-id word...)")
	cmd.Flags().IntVar(&params.Order, "order", params.Order, "N-gram order")
	cmd.Flags().StringVar(&params.Discount, "discount", params.Discount, "Discounting method (kn|wb|gt)")
	cmd.Flags().BoolVar(&params.Interpolate, "interpolate", params.Interpolate, "Interpolate lower-order estimates")
	cmd.Flags().BoolVar(&params.KeepUnknowns, "keep-unknowns", params.KeepUnknowns, "Map out-of-vocabulary words to the unknown word")
	cmd.Flags().BoolVar(&params.RemoveIllegal, "remove-illegal", params.RemoveIllegal, "Drop n-grams with misplaced sentence boundaries")
	cmd.Flags().BoolVar(&params.LimitVocab, "limit-vocab", params.LimitVocab, "Restrict the model to the word table")
	_ = cmd.MarkFlagRequired("transcripts")

	cmd.AddCommand(
		newGrammarArpaCommand(container),
		newGrammarAddCommand(container),
	)
	return cmd
}

// newGrammarArpaCommand creates the 'grammar arpa' subcommand
func newGrammarArpaCommand(container *app.Container) *cobra.Command {
	var words, arpa string
	params := domain.DefaultArpaParams()

	cmd := &cobra.Command{
		Use:   "arpa",
		Short: "Compile an ARPA language model into G.fst",
		RunE: func(cmd *cobra.Command, args []string) error {
			return buildArpaGrammar(cmd, container, words, arpa, params)
		},
	}

	cmd.Flags().StringVar(&words, "words", "", "Word symbol table (default: the registered lexicon's)")
	cmd.Flags().StringVar(&arpa, "arpa", "", "ARPA language model")
	cmd.Flags().BoolVar(&params.RemoveIllegal, "remove-illegal", params.RemoveIllegal, "Drop n-grams with misplaced sentence boundaries")
	_ = cmd.MarkFlagRequired("arpa")
	return cmd
}

// newGrammarAddCommand creates the 'grammar add' subcommand
func newGrammarAddCommand(container *app.Container) *cobra.Command {
	var fst string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register an existing grammar acceptor",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContext(container)
			if err != nil {
				return err
			}
			if err := requireFiles(fst); err != nil {
				return err
			}
			G, err := c.RegisterG(fst)
			if err != nil {
				return fmt.Errorf("failed to register grammar: %w", err)
			}
			displayRegistered(cmd.OutOrStdout(), "grammar", field{"fst", G.Filename})
			return nil
		},
	}

	cmd.Flags().StringVar(&fst, "fst", "", "Compiled grammar acceptor")
	_ = cmd.MarkFlagRequired("fst")
	return cmd
}

// buildGrammar runs the grammar estimation recipe
func buildGrammar(cmd *cobra.Command, container *app.Container, words, transcripts string, params domain.GrammarParams) error {
	c, err := openContext(container)
	if err != nil {
		return err
	}
	registry, err := c.Registry()
	if err != nil {
		return err
	}
	if err := registeredDefault(&words, registry.WordsFile, "words", "lexicon"); err != nil {
		return err
	}

	L := c.AddL("", "", words)
	G, outcome, err := runBuild(cmd, "estimating grammar", func() (domain.GrammarGraph, recipe.Outcome, error) {
		return c.MakeG(cmd.Context(), L, transcripts, params)
	})
	if err != nil {
		return fmt.Errorf("failed to build grammar: %w", err)
	}

	displayBuild(cmd.OutOrStdout(), domain.StageGrammar, outcome,
		field{"fst", G.Filename},
		field{"words", G.WordsFile},
		field{"transcripts", G.Transcripts},
		field{"log", outcome.LogPath})
	return nil
}

// buildArpaGrammar runs the ARPA compilation recipe
func buildArpaGrammar(cmd *cobra.Command, container *app.Container, words, arpa string, params domain.ArpaParams) error {
	c, err := openContext(container)
	if err != nil {
		return err
	}
	registry, err := c.Registry()
	if err != nil {
		return err
	}
	if err := registeredDefault(&words, registry.WordsFile, "words", "lexicon"); err != nil {
		return err
	}

	L := c.AddL("", "", words)
	G, outcome, err := runBuild(cmd, "compiling grammar", func() (domain.GrammarGraph, recipe.Outcome, error) {
		return c.MakeGArpa(cmd.Context(), L, arpa, params)
	})
	if err != nil {
		return fmt.Errorf("failed to compile ARPA grammar: %w", err)
	}

	displayBuild(cmd.OutOrStdout(), domain.StageGrammarArpa, outcome,
		field{"fst", G.Filename},
		field{"words", G.WordsFile},
		field{"arpa", G.ArpaFile},
		field{"log", outcome.LogPath})
	return nil
}
