package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/skip-go/internal/app"
	"github.com/doeshing/skip-go/internal/application/decode"
	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/domain"
)

// alignFlags enables word and phone durations.
type alignFlags struct {
	phones     string
	lexiconFST string
}

func (a alignFlags) symbols() *decode.AlignmentSymbols {
	if a.phones == "" && a.lexiconFST == "" {
		return nil
	}
	return &decode.AlignmentSymbols{PhonesFile: a.phones, LexiconFST: a.lexiconFST}
}

func (a *alignFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.phones, "align-phones", "", "Phone table with word-boundary symbols, enables durations")
	cmd.Flags().StringVar(&a.lexiconFST, "align-lexicon-fst", "", "Word-boundary lexicon transducer, enables durations")
	cmd.MarkFlagsRequiredTogether("align-phones", "align-lexicon-fst")
}

// NewDecodeCommand creates the decode command
func NewDecodeCommand(container *app.Container) *cobra.Command {
	var feats, graph, words, model, tree string
	var align alignFlags

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode features into best-path transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContext(container)
			if err != nil {
				return err
			}
			registry, err := c.Registry()
			if err != nil {
				return err
			}
			if err := registeredDefault(&graph, registry.DecodeGraphFST, "graph", "graph"); err != nil {
				return err
			}
			if err := registeredDefault(&words, registry.WordsFile, "words", "lexicon"); err != nil {
				return err
			}
			hyp, outcome, err := runBuild(cmd, "decoding", func() (domain.Hypothesis, recipe.Outcome, error) {
				return c.Decode(cmd.Context(), domain.Features{Filename: feats}, c.AddHCLG(graph), words, c.AddGMM(model, tree), align.symbols())
			})
			if err != nil {
				return fmt.Errorf("failed to decode: %w", err)
			}
			fields := []field{{"transcripts", hyp.Filename}, {"word ids", hyp.IntFilename}}
			fields = append(fields, lengthFields(hyp.Lengths)...)
			fields = append(fields, field{"log", outcome.LogPath})
			displayBuild(cmd.OutOrStdout(), domain.StageHypotheses, outcome, fields...)
			return nil
		},
	}

	cmd.Flags().StringVar(&feats, "features", "", "Feature archive")
	cmd.Flags().StringVar(&graph, "graph", "", "Decoding graph HCLG.fst (default: the registered one)")
	cmd.Flags().StringVar(&words, "words", "", "Word symbol table (default: the registered lexicon's)")
	cmd.Flags().StringVar(&model, "model", "", "GMM acoustic model")
	cmd.Flags().StringVar(&tree, "tree", "", "Phonetic decision tree")
	align.register(cmd)
	for _, name := range []string{"features", "model", "tree"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// NewAlignCommand creates the align command
func NewAlignCommand(container *app.Container) *cobra.Command {
	var feats, transcripts, lexiconFST, words, model, tree string
	var align alignFlags

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Force-align features against reference transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContext(container)
			if err != nil {
				return err
			}
			L := c.AddL(lexiconFST, "", words)
			ali, outcome, err := runBuild(cmd, "aligning", func() (domain.Alignment, recipe.Outcome, error) {
				return c.Align(cmd.Context(), domain.Features{Filename: feats}, transcripts, L, c.AddGMM(model, tree), align.symbols())
			})
			if err != nil {
				return fmt.Errorf("failed to align: %w", err)
			}
			fields := []field{{"alignments", ali.Filename}, {"word ids", ali.IntTranscripts}}
			fields = append(fields, lengthFields(ali.Lengths)...)
			fields = append(fields, field{"log", outcome.LogPath})
			displayBuild(cmd.OutOrStdout(), domain.StageAlignments, outcome, fields...)
			return nil
		},
	}

	cmd.Flags().StringVar(&feats, "features", "", "Feature archive")
	cmd.Flags().StringVar(&transcripts, "transcripts", "", "Reference transcripts (utterance-id word...)")
	cmd.Flags().StringVar(&lexiconFST, "lexicon-fst", "", "Lexicon transducer L.fst")
	cmd.Flags().StringVar(&words, "words", "", "Word symbol table")
	cmd.Flags().StringVar(&model, "model", "", "GMM acoustic model")
	cmd.Flags().StringVar(&tree, "tree", "", "Phonetic decision tree")
	align.register(cmd)
	for _, name := range []string{"features", "transcripts", "lexicon-fst", "words", "model", "tree"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
