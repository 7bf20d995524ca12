// Package decode runs GMM decoding and forced alignment over feature
// archives and translates the integer outputs back to symbols.
package decode

import (
	"context"
	"io"
	"path/filepath"

	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/infrastructure/pipeline"
	"github.com/doeshing/skip-go/internal/infrastructure/symtab"
	"github.com/doeshing/skip-go/internal/pkg/canonical"
)

// Service decodes and aligns inside a context directory.
type Service struct {
	engine  *recipe.Engine
	symbols domain.SymbolSettings
}

// NewService returns a decode Service.
func NewService(engine *recipe.Engine, symbols domain.SymbolSettings) *Service {
	return &Service{engine: engine, symbols: symbols.WithSymbolDefaults()}
}

// Decode produces (or returns the cached) best-path hypotheses for feats.
func (s *Service) Decode(ctx context.Context, contextDir string, feats domain.Features, graph domain.DecodeGraph, wordsFile string, mdl domain.AcousticModel, align *AlignmentSymbols) (domain.Hypothesis, recipe.Outcome, error) {
	dir := recipe.StageDir(contextDir, domain.StageHypotheses)
	params := canonical.New("Decode").
		Path("featsfile", feats.Filename).
		Path("graphfile", graph.Filename).
		Path("wordsfile", wordsFile).
		Path("mdlfile", mdl.Filename).
		Path("treefile", mdl.TreeFile)
	if align.Enabled() {
		params.Path("phonesfilealign", align.PhonesFile).Path("lexfstalign", align.LexiconFST)
	}

	attrs, outcome, err := s.engine.Ensure(ctx, recipe.Request{
		Dir:    dir,
		Params: params,
		Dependencies: func(prev domain.Attributes) []domain.DependencyPair {
			old := domain.HypothesisFrom(prev)
			pairs := []domain.DependencyPair{
				domain.StampPair(feats.Filename, old.FeaturesTime),
				domain.StampPair(graph.Filename, old.GraphTime),
				domain.StampPair(wordsFile, old.WordsTime),
				domain.StampPair(mdl.Filename, old.ModelTime),
				domain.StampPair(mdl.TreeFile, old.TreeTime),
			}
			if align.Enabled() {
				pairs = append(pairs,
					domain.StampPair(align.PhonesFile, old.PhonesAlignTime),
					domain.StampPair(align.LexiconFST, old.LexiconAlignTime))
			}
			return pairs
		},
		Build: func(ctx context.Context, b *recipe.Build) (domain.Artifact, error) {
			return s.buildHypothesis(ctx, b, feats, graph, wordsFile, mdl, align)
		},
	})
	if err != nil {
		return domain.Hypothesis{}, outcome, err
	}
	return domain.HypothesisFrom(attrs), outcome, nil
}

func (s *Service) buildHypothesis(ctx context.Context, b *recipe.Build, feats domain.Features, graph domain.DecodeGraph, wordsFile string, mdl domain.AcousticModel, align *AlignmentSymbols) (domain.Artifact, error) {
	var hyp domain.Hypothesis
	targets := []stampTarget{
		{feats.Filename, &hyp.FeaturesTime},
		{graph.Filename, &hyp.GraphTime},
		{wordsFile, &hyp.WordsTime},
		{mdl.Filename, &hyp.ModelTime},
		{mdl.TreeFile, &hyp.TreeTime},
	}
	if align.Enabled() {
		targets = append(targets,
			stampTarget{align.PhonesFile, &hyp.PhonesAlignTime},
			stampTarget{align.LexiconFST, &hyp.LexiconAlignTime})
	}
	if err := stampAll(b, targets...); err != nil {
		return nil, err
	}

	words, err := symtab.Read(wordsFile)
	if err != nil {
		return nil, err
	}
	hyp.Filename = b.NewFile("hyp-", ".txt")
	hyp.IntFilename = b.NewFile("hyp-", ".int")
	if align.Enabled() {
		hyp.Lengths = newLengths(b)
	}

	err = pipeline.WithScratch("", func(scratch string) error {
		alignments := filepath.Join(scratch, "ali.ark")
		stages := []domain.Stage{{
			Name: "decode",
			Chain: []domain.Process{
				domain.Cmd("gmm-decode-faster", mdl.Filename, graph.Filename,
					"ark:"+feats.Filename, "ark,t:-", "ark:"+alignments),
			},
			Output: domain.ToConsumer(func(r io.Reader) error {
				return translateWords(r, hyp.IntFilename, hyp.Filename, words, s.symbols.DecodeOOVWord)
			}),
			Produces: []string{hyp.IntFilename, hyp.Filename},
		}}
		if align.Enabled() {
			job := lengthJob{
				model:      mdl.Filename,
				alignments: alignments,
				wordIDs:    hyp.IntFilename,
				words:      words,
				align:      align,
				symbols:    s.symbols,
			}
			more, err := job.stages(hyp.Lengths)
			if err != nil {
				return err
			}
			stages = append(stages, more...)
		}
		return b.Run(ctx, b.Invocation("decode", stages...))
	})
	if err != nil {
		return nil, err
	}
	return hyp, nil
}
