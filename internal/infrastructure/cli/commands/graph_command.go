package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/skip-go/internal/app"
	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/application/workspace"
	"github.com/doeshing/skip-go/internal/domain"
)

// graphInputs names the files the decoding graph is composed from.
type graphInputs struct {
	lexiconFST string
	phones     string
	grammarFST string
	model      string
	tree       string
}

// fill takes omitted inputs from the context registry.
func (in *graphInputs) fill(c *workspace.Context) error {
	registry, err := c.Registry()
	if err != nil {
		return err
	}
	if err := registeredDefault(&in.lexiconFST, registry.LexiconFST, "lexicon-fst", "lexicon"); err != nil {
		return err
	}
	if err := registeredDefault(&in.phones, registry.PhonesFile, "phones", "lexicon"); err != nil {
		return err
	}
	return registeredDefault(&in.grammarFST, registry.GrammarFST, "grammar-fst", "grammar")
}

// NewGraphCommand creates the graph command and its 'add' subcommand
func NewGraphCommand(container *app.Container) *cobra.Command {
	var in graphInputs
	params := domain.DefaultDecodeGraphParams()

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Compose the decoding graph HCLG.fst",
		RunE: func(cmd *cobra.Command, args []string) error {
			return buildDecodeGraph(cmd, container, in, params)
		},
	}

	cmd.Flags().StringVar(&in.lexiconFST, "lexicon-fst", "", "Lexicon transducer L.fst (default: the registered one)")
	cmd.Flags().StringVar(&in.phones, "phones", "", "Phone symbol table of the lexicon (default: the registered one)")
	cmd.Flags().StringVar(&in.grammarFST, "grammar-fst", "", "Grammar acceptor G.fst (default: the registered one)")
	cmd.Flags().StringVar(&in.model, "model", "", "GMM acoustic model")
	cmd.Flags().StringVar(&in.tree, "tree", "", "Phonetic decision tree")
	cmd.Flags().IntVar(&params.ContextSize, "context-size", params.ContextSize, "Phonetic context width")
	cmd.Flags().IntVar(&params.CentralPosition, "central-position", params.CentralPosition, "Position of the central phone")
	cmd.Flags().Float64Var(&params.TransitionScale, "transition-scale", params.TransitionScale, "Transition probability scale")
	cmd.Flags().Float64Var(&params.LoopScale, "loop-scale", params.LoopScale, "Self-loop probability scale")
	for _, name := range []string{"model", "tree"} {
		_ = cmd.MarkFlagRequired(name)
	}

	cmd.AddCommand(newGraphAddCommand(container))
	return cmd
}

// newGraphAddCommand creates the 'graph add' subcommand
func newGraphAddCommand(container *app.Container) *cobra.Command {
	var fst string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register an existing decoding graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContext(container)
			if err != nil {
				return err
			}
			if err := requireFiles(fst); err != nil {
				return err
			}
			HCLG, err := c.RegisterHCLG(fst)
			if err != nil {
				return fmt.Errorf("failed to register decoding graph: %w", err)
			}
			displayRegistered(cmd.OutOrStdout(), "graph", field{"fst", HCLG.Filename})
			return nil
		},
	}

	cmd.Flags().StringVar(&fst, "fst", "", "Compiled decoding graph")
	_ = cmd.MarkFlagRequired("fst")
	return cmd
}

// buildDecodeGraph runs the HCLG composition recipe
func buildDecodeGraph(cmd *cobra.Command, container *app.Container, in graphInputs, params domain.DecodeGraphParams) error {
	c, err := openContext(container)
	if err != nil {
		return err
	}
	if err := in.fill(c); err != nil {
		return err
	}

	L := c.AddL(in.lexiconFST, in.phones, "")
	G := c.AddG(in.grammarFST)
	mdl := c.AddGMM(in.model, in.tree)
	HCLG, outcome, err := runBuild(cmd, "composing decoding graph", func() (domain.DecodeGraph, recipe.Outcome, error) {
		return c.MakeHCLG(cmd.Context(), L, G, mdl, params)
	})
	if err != nil {
		return fmt.Errorf("failed to build decoding graph: %w", err)
	}

	displayBuild(cmd.OutOrStdout(), domain.StageDecodeGraph, outcome,
		field{"fst", HCLG.Filename},
		field{"log", outcome.LogPath})
	return nil
}
