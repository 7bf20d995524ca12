package graph

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/infrastructure/pipeline"
	"github.com/doeshing/skip-go/internal/infrastructure/symtab"
	"github.com/doeshing/skip-go/internal/pkg/canonical"
)

// MakeHCLG composes the final decoding graph from L, G and an acoustic
// model. The sources are large binaries and are not copied; their
// modification times at build time are recorded instead.
func (s *Service) MakeHCLG(ctx context.Context, contextDir string, L domain.LexiconGraph, G domain.GrammarGraph, mdl domain.AcousticModel, p domain.DecodeGraphParams) (domain.DecodeGraph, recipe.Outcome, error) {
	if err := p.Validate(); err != nil {
		return domain.DecodeGraph{}, recipe.Outcome{}, err
	}
	dir := recipe.StageDir(contextDir, domain.StageDecodeGraph)
	params := canonical.New("HCLG").
		Path("lexfst", L.Filename).
		Path("phonesfile", L.PhonesFile).
		Path("grammarfst", G.Filename).
		Path("mdlfile", mdl.Filename).
		Path("treefile", mdl.TreeFile).
		Int("contextsize", p.ContextSize).
		Int("centralposition", p.CentralPosition).
		Float("transitionscale", p.TransitionScale).
		Float("loopscale", p.LoopScale)

	attrs, outcome, err := s.engine.Ensure(ctx, recipe.Request{
		Dir:    dir,
		Params: params,
		Dependencies: func(prev domain.Attributes) []domain.DependencyPair {
			old := domain.DecodeGraphFrom(prev)
			return []domain.DependencyPair{
				domain.StampPair(L.Filename, old.LexiconTime),
				domain.StampPair(L.PhonesFile, old.PhonesTime),
				domain.StampPair(G.Filename, old.GrammarTime),
				domain.StampPair(mdl.TreeFile, old.TreeTime),
				domain.StampPair(mdl.Filename, old.ModelTime),
			}
		},
		Build: func(ctx context.Context, b *recipe.Build) (domain.Artifact, error) {
			return s.buildHCLG(ctx, b, L, G, mdl, p)
		},
	})
	if err != nil {
		return domain.DecodeGraph{}, outcome, err
	}
	return domain.DecodeGraphFrom(attrs), outcome, nil
}

func (s *Service) buildHCLG(ctx context.Context, b *recipe.Build, L domain.LexiconGraph, G domain.GrammarGraph, mdl domain.AcousticModel, p domain.DecodeGraphParams) (domain.Artifact, error) {
	var (
		HCLG domain.DecodeGraph
		err  error
	)
	for _, st := range []struct {
		dst  *domain.Stamp
		path string
	}{
		{&HCLG.LexiconTime, L.Filename},
		{&HCLG.PhonesTime, L.PhonesFile},
		{&HCLG.GrammarTime, G.Filename},
		{&HCLG.TreeTime, mdl.TreeFile},
		{&HCLG.ModelTime, mdl.Filename},
	} {
		if *st.dst, err = b.Stamp(st.path); err != nil {
			return nil, err
		}
	}
	HCLG.Filename = b.NewFile("HCLG-", ".fst")

	phones, err := symtab.Read(L.PhonesFile)
	if err != nil {
		return nil, err
	}

	err = pipeline.WithScratch("", func(scratch string) error {
		disambigSyms := filepath.Join(scratch, "disambig.sym")
		ilabels := filepath.Join(scratch, "ilabels")
		disambigTids := filepath.Join(scratch, "disambig.tid")
		clg := filepath.Join(scratch, "CLG.fst")
		ha := filepath.Join(scratch, "Ha.fst")

		if err := recipe.WriteLines(disambigSyms, func(w *bufio.Writer) error {
			for _, id := range phones.DisambigIDs() {
				if _, err := fmt.Fprintln(w, id); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}

		return b.Run(ctx, b.Invocation("HCLG",
			domain.Stage{
				Name: "compose-clg",
				Chain: []domain.Process{
					domain.Cmd("fsttablecompose", L.Filename, G.Filename),
					domain.Cmd("fstdeterminizestar", "--use-log=true"),
					domain.Cmd("fstminimizeencoded"),
					domain.Cmd("fstcomposecontext",
						"--context-size="+strconv.Itoa(p.ContextSize),
						"--central-position="+strconv.Itoa(p.CentralPosition),
						"--read-disambig-syms="+disambigSyms,
						ilabels),
				},
				Output:   domain.ToFile(clg),
				Produces: []string{clg, ilabels},
			},
			domain.Stage{
				Name: "make-h",
				Chain: []domain.Process{
					domain.Cmd("make-h-transducer",
						"--disambig-syms-out="+disambigTids,
						"--transition-scale="+formatCost(p.TransitionScale),
						ilabels, mdl.TreeFile, mdl.Filename),
				},
				Output:   domain.ToFile(ha),
				Produces: []string{ha, disambigTids},
			},
			domain.Stage{
				Name: "compose-hclg",
				Chain: []domain.Process{
					domain.Cmd("fsttablecompose", ha, clg),
					domain.Cmd("fstdeterminizestar", "--use-log=true"),
					domain.Cmd("fstrmsymbols", disambigTids),
					domain.Cmd("fstrmepslocal"),
					domain.Cmd("fstminimizeencoded"),
					domain.Cmd("add-self-loops",
						"--self-loop-scale="+formatCost(p.LoopScale),
						"--reorder=true",
						mdl.Filename),
				},
				Output:   domain.ToFile(HCLG.Filename),
				Produces: []string{HCLG.Filename},
			},
		))
	})
	if err != nil {
		return nil, err
	}
	return HCLG, nil
}

// AddHCLG registers an existing decoding graph.
func (s *Service) AddHCLG(fst string) domain.DecodeGraph {
	return domain.DecodeGraph{Filename: fst}
}
