package decode

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/infrastructure/symtab"
	"github.com/doeshing/skip-go/internal/pkg/canonical"
)

// Align force-aligns feats against reference transcripts.
func (s *Service) Align(ctx context.Context, contextDir string, feats domain.Features, transcripts string, L domain.LexiconGraph, mdl domain.AcousticModel, align *AlignmentSymbols) (domain.Alignment, recipe.Outcome, error) {
	dir := recipe.StageDir(contextDir, domain.StageAlignments)
	params := canonical.New("Align").
		Path("featsfile", feats.Filename).
		Path("transfile", transcripts).
		Path("lexfst", L.Filename).
		Path("wordsfile", L.WordsFile).
		Path("mdlfile", mdl.Filename).
		Path("treefile", mdl.TreeFile)
	if align.Enabled() {
		params.Path("phonesfilealign", align.PhonesFile).Path("lexfstalign", align.LexiconFST)
	}

	attrs, outcome, err := s.engine.Ensure(ctx, recipe.Request{
		Dir:    dir,
		Params: params,
		Dependencies: func(prev domain.Attributes) []domain.DependencyPair {
			old := domain.AlignmentFrom(prev)
			pairs := []domain.DependencyPair{
				domain.StampPair(feats.Filename, old.FeaturesTime),
				domain.StampPair(transcripts, old.TranscriptsTime),
				domain.StampPair(L.Filename, old.LexiconTime),
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
			return s.buildAlignment(ctx, b, feats, transcripts, L, mdl, align)
		},
	})
	if err != nil {
		return domain.Alignment{}, outcome, err
	}
	return domain.AlignmentFrom(attrs), outcome, nil
}

func (s *Service) buildAlignment(ctx context.Context, b *recipe.Build, feats domain.Features, transcripts string, L domain.LexiconGraph, mdl domain.AcousticModel, align *AlignmentSymbols) (domain.Artifact, error) {
	var ali domain.Alignment
	targets := []stampTarget{
		{feats.Filename, &ali.FeaturesTime},
		{transcripts, &ali.TranscriptsTime},
		{L.Filename, &ali.LexiconTime},
		{mdl.Filename, &ali.ModelTime},
		{mdl.TreeFile, &ali.TreeTime},
	}
	if align.Enabled() {
		targets = append(targets,
			stampTarget{align.PhonesFile, &ali.PhonesAlignTime},
			stampTarget{align.LexiconFST, &ali.LexiconAlignTime})
	}
	if err := stampAll(b, targets...); err != nil {
		return nil, err
	}

	words, err := symtab.Read(L.WordsFile)
	if err != nil {
		return nil, err
	}
	ali.Filename = b.NewFile("ali-", ".ark")
	ali.IntTranscripts = b.NewFile("trans-", ".int")
	if err := s.transcriptsToIDs(transcripts, ali.IntTranscripts, words); err != nil {
		return nil, err
	}

	stages := []domain.Stage{{
		Name: "align",
		Chain: []domain.Process{
			domain.Cmd("compile-train-graphs", mdl.TreeFile, mdl.Filename, L.Filename,
				"ark:"+ali.IntTranscripts, "ark:-"),
			domain.Cmd("gmm-align-compiled", mdl.Filename, "ark:-",
				"ark:"+feats.Filename, "ark:"+ali.Filename),
		},
		Produces: []string{ali.Filename},
	}}
	if align.Enabled() {
		ali.Lengths = newLengths(b)
		job := lengthJob{
			model:      mdl.Filename,
			alignments: ali.Filename,
			wordIDs:    ali.IntTranscripts,
			words:      words,
			align:      align,
			symbols:    s.symbols,
		}
		more, err := job.stages(ali.Lengths)
		if err != nil {
			return nil, err
		}
		stages = append(stages, more...)
	}
	if err := b.Run(ctx, b.Invocation("align", stages...)); err != nil {
		return nil, err
	}
	return ali, nil
}

// transcriptsToIDs maps "utt w1 w2 ..." lines to word ids. Words missing
// from the table map to the unknown word, which must then exist.
func (s *Service) transcriptsToIDs(transcripts, out string, words *symtab.Table) error {
	return recipe.WriteLines(out, func(w *bufio.Writer) error {
		return recipe.ScanFile(transcripts, func(line string) error {
			fields := strings.Fields(line)
			if len(fields) == 0 {
				return nil
			}
			ids := make([]string, 0, len(fields))
			ids = append(ids, fields[0])
			for _, word := range fields[1:] {
				id, ok := words.ID(word)
				if !ok {
					id, ok = words.ID(s.symbols.UnknownWord)
				}
				if !ok {
					return fmt.Errorf("transcripts: word %q is not in the word table and %s is undefined", word, s.symbols.UnknownWord)
				}
				ids = append(ids, strconv.Itoa(id))
			}
			_, err := fmt.Fprintln(w, strings.Join(ids, " "))
			return err
		})
	})
}
