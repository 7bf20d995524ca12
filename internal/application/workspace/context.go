// Package workspace manages named contexts: one directory tree per
// application of the toolchain, holding every cached artifact built for it.
package workspace

import (
	"context"

	"github.com/doeshing/skip-go/internal/application/decode"
	"github.com/doeshing/skip-go/internal/application/features"
	"github.com/doeshing/skip-go/internal/application/graph"
	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/domain"
)

// Recipes are the build services a context delegates to.
type Recipes struct {
	Graph    *graph.Service
	Features *features.Service
	Decode   *decode.Service
}

// Context is an opened context directory. Repeated calls with the same
// inputs return the cached artifacts.
type Context struct {
	Name string
	Dir  string

	recipes Recipes
}

// MakeL builds the lexicon transducer.
func (c *Context) MakeL(ctx context.Context, src graph.LexiconSources, p domain.LexiconParams) (domain.LexiconGraph, recipe.Outcome, error) {
	return c.recipes.Graph.MakeL(ctx, c.Dir, src, p)
}

// AddL registers an existing lexicon transducer.
func (c *Context) AddL(fst, phonesFile, wordsFile string) domain.LexiconGraph {
	return c.recipes.Graph.AddL(fst, phonesFile, wordsFile)
}

// MakeG estimates a grammar from transcripts.
func (c *Context) MakeG(ctx context.Context, L domain.LexiconGraph, transcripts string, p domain.GrammarParams) (domain.GrammarGraph, recipe.Outcome, error) {
	return c.recipes.Graph.MakeG(ctx, c.Dir, L, transcripts, p)
}

// MakeGArpa compiles a grammar from an ARPA language model.
func (c *Context) MakeGArpa(ctx context.Context, L domain.LexiconGraph, arpaFile string, p domain.ArpaParams) (domain.GrammarGraph, recipe.Outcome, error) {
	return c.recipes.Graph.MakeGArpa(ctx, c.Dir, L, arpaFile, p)
}

// AddG registers an existing grammar acceptor.
func (c *Context) AddG(fst string) domain.GrammarGraph {
	return c.recipes.Graph.AddG(fst)
}

// MakeHCLG composes the decoding graph.
func (c *Context) MakeHCLG(ctx context.Context, L domain.LexiconGraph, G domain.GrammarGraph, mdl domain.AcousticModel, p domain.DecodeGraphParams) (domain.DecodeGraph, recipe.Outcome, error) {
	return c.recipes.Graph.MakeHCLG(ctx, c.Dir, L, G, mdl, p)
}

// AddHCLG registers an existing decoding graph.
func (c *Context) AddHCLG(fst string) domain.DecodeGraph {
	return c.recipes.Graph.AddHCLG(fst)
}

// AddGMM registers a trained GMM model and its decision tree.
func (c *Context) AddGMM(modelFile, treeFile string) domain.AcousticModel {
	return domain.AcousticModel{Filename: modelFile, TreeFile: treeFile}
}

// MakeFeatures extracts acoustic features.
func (c *Context) MakeFeatures(ctx context.Context, src features.Sources, p domain.FeatureParams) (domain.Features, recipe.Outcome, error) {
	return c.recipes.Features.MakeFeatures(ctx, c.Dir, src, p)
}

// Decode produces best-path hypotheses.
func (c *Context) Decode(ctx context.Context, feats domain.Features, HCLG domain.DecodeGraph, wordsFile string, mdl domain.AcousticModel, align *decode.AlignmentSymbols) (domain.Hypothesis, recipe.Outcome, error) {
	return c.recipes.Decode.Decode(ctx, c.Dir, feats, HCLG, wordsFile, mdl, align)
}

// Align force-aligns features against transcripts.
func (c *Context) Align(ctx context.Context, feats domain.Features, transcripts string, L domain.LexiconGraph, mdl domain.AcousticModel, align *decode.AlignmentSymbols) (domain.Alignment, recipe.Outcome, error) {
	return c.recipes.Decode.Align(ctx, c.Dir, feats, transcripts, L, mdl, align)
}
