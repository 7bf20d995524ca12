package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/doeshing/skip-go/internal/application/lexprep"
	"github.com/doeshing/skip-go/internal/domain"
)

// NewSymtablesCommand creates the symtables command, which prepares symbol
// tables and a lexicon from the CMU pronouncing dictionary
func NewSymtablesCommand() *cobra.Command {
	var dictDir, outDir string
	opts := lexprep.DefaultOptions()

	cmd := &cobra.Command{
		Use:         "symtables",
		Short:       "Write words.txt, phones.txt and lexicon.txt from CMUdict",
		Annotations: configOnly(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(outDir, domain.DirectoryPermissions); err != nil {
				return fmt.Errorf("failed to create %s: %w", outDir, err)
			}
			out := lexprep.Outputs{
				WordsFile:   filepath.Join(outDir, "words.txt"),
				PhonesFile:  filepath.Join(outDir, "phones.txt"),
				LexiconFile: filepath.Join(outDir, "lexicon.txt"),
			}
			summary, err := lexprep.FromCMUDict(dictDir, out, opts)
			if err != nil {
				return fmt.Errorf("failed to convert dictionary: %w", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "words:   %s (%d)\n", out.WordsFile, summary.Words)
			fmt.Fprintf(w, "phones:  %s (%d)\n", out.PhonesFile, summary.Phones)
			fmt.Fprintf(w, "lexicon: %s (%d pronunciations)\n", out.LexiconFile, summary.Pronunciations)
			if opts.AddDisambig {
				fmt.Fprintf(w, "disambiguation symbols: #0..#%d\n", summary.MaxDisambigID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dictDir, "cmudict", "", "Directory holding "+lexprep.DictFile+" and "+lexprep.SymbolsFile)
	cmd.Flags().StringVar(&outDir, "out", ".", "Output directory")
	cmd.Flags().BoolVar(&opts.AddSilNoise, "add-silnoise", opts.AddSilNoise, "Add silence and noise words and phones")
	cmd.Flags().BoolVar(&opts.AddUnknown, "add-unknown", opts.AddUnknown, "Add the unknown word")
	cmd.Flags().BoolVar(&opts.AddEmpty, "add-empty", opts.AddEmpty, "Add sentence boundary words")
	cmd.Flags().BoolVar(&opts.AddPosition, "add-position", opts.AddPosition, "Mark word-position dependent phones")
	cmd.Flags().BoolVar(&opts.AddDisambig, "add-disambig", opts.AddDisambig, "Add disambiguation symbols")
	cmd.Flags().BoolVar(&opts.AddWordBounds, "add-word-bounds", opts.AddWordBounds, "Add word boundary symbols for alignment")
	_ = cmd.MarkFlagRequired("cmudict")
	return cmd
}
