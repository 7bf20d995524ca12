package graph

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/infrastructure/pipeline"
	"github.com/doeshing/skip-go/internal/infrastructure/symtab"
	"github.com/doeshing/skip-go/internal/pkg/canonical"
)

// MakeG estimates an n-gram language model from transcripts and compiles
// it into a grammar acceptor over the lexicon's word table.
func (s *Service) MakeG(ctx context.Context, contextDir string, L domain.LexiconGraph, transcripts string, p domain.GrammarParams) (domain.GrammarGraph, recipe.Outcome, error) {
	if err := p.Validate(); err != nil {
		return domain.GrammarGraph{}, recipe.Outcome{}, err
	}
	dir := recipe.StageDir(contextDir, domain.StageGrammar)
	params := canonical.New("G").
		Path("wordsfile", L.WordsFile).
		Path("transcripts", transcripts).
		Bool("interpolate", p.Interpolate).
		Int("order", p.Order).
		Str("discount", p.Discount).
		Bool("keepunknowns", p.KeepUnknowns).
		Bool("rmillegal", p.RemoveIllegal).
		Bool("limitvocab", p.LimitVocab).
		Str("unknownword", s.symbols.UnknownWord)

	attrs, outcome, err := s.engine.Ensure(ctx, recipe.Request{
		Dir:    dir,
		Params: params,
		Dependencies: func(prev domain.Attributes) []domain.DependencyPair {
			old := domain.GrammarGraphFrom(prev)
			return []domain.DependencyPair{
				domain.PathPair(L.WordsFile, old.WordsFile),
				domain.PathPair(transcripts, old.Transcripts),
			}
		},
		Build: func(ctx context.Context, b *recipe.Build) (domain.Artifact, error) {
			return s.buildG(ctx, b, L.WordsFile, transcripts, p)
		},
	})
	if err != nil {
		return domain.GrammarGraph{}, outcome, err
	}
	return domain.GrammarGraphFrom(attrs), outcome, nil
}

func (s *Service) buildG(ctx context.Context, b *recipe.Build, wordsFile, transcripts string, p domain.GrammarParams) (domain.Artifact, error) {
	var (
		G   domain.GrammarGraph
		err error
	)
	if G.WordsFile, err = b.CopySource(wordsFile, "words-", ".txt"); err != nil {
		return nil, err
	}
	if G.Transcripts, err = b.CopySource(transcripts, "trans-", ".ark"); err != nil {
		return nil, err
	}
	G.Filename = b.NewFile("G-", ".fst")

	err = pipeline.WithScratch("", func(scratch string) error {
		trainFile := filepath.Join(scratch, "train.txt")
		vocabFile := filepath.Join(scratch, "vocab.txt")
		lmFile := filepath.Join(scratch, "lm.arpa")
		textFST := filepath.Join(scratch, "text.fst")

		vocab, err := writeVocabulary(G.WordsFile, vocabFile)
		if err != nil {
			return err
		}
		if err := writeTrainingText(G.Transcripts, trainFile, vocab, p.KeepUnknowns, s.symbols.UnknownWord); err != nil {
			return err
		}

		stages := append([]domain.Stage{
			{
				Name:     "estimate-lm",
				Chain:    []domain.Process{domain.Cmd("ngram-count", ngramArgs(p, trainFile, vocabFile, lmFile)...)},
				Produces: []string{lmFile},
			},
		}, s.arpaStages(lmFile, textFST, G.WordsFile, G.Filename, p.RemoveIllegal)...)
		return b.Run(ctx, b.Invocation("G", stages...))
	})
	if err != nil {
		return nil, err
	}
	return G, nil
}

// MakeGArpa compiles an existing ARPA language model into a grammar
// acceptor over the lexicon's word table.
func (s *Service) MakeGArpa(ctx context.Context, contextDir string, L domain.LexiconGraph, arpaFile string, p domain.ArpaParams) (domain.GrammarGraph, recipe.Outcome, error) {
	dir := recipe.StageDir(contextDir, domain.StageGrammarArpa)
	params := canonical.New("GArpa").
		Path("wordsfile", L.WordsFile).
		Path("arpafile", arpaFile).
		Bool("rmillegal", p.RemoveIllegal)

	attrs, outcome, err := s.engine.Ensure(ctx, recipe.Request{
		Dir:    dir,
		Params: params,
		Dependencies: func(prev domain.Attributes) []domain.DependencyPair {
			old := domain.GrammarGraphFrom(prev)
			return []domain.DependencyPair{
				domain.PathPair(L.WordsFile, old.WordsFile),
				domain.PathPair(arpaFile, old.ArpaFile),
			}
		},
		Build: func(ctx context.Context, b *recipe.Build) (domain.Artifact, error) {
			var (
				G   domain.GrammarGraph
				err error
			)
			if G.WordsFile, err = b.CopySource(L.WordsFile, "words-", ".txt"); err != nil {
				return nil, err
			}
			if G.ArpaFile, err = b.CopySource(arpaFile, "lm-", ".arpa"); err != nil {
				return nil, err
			}
			G.Filename = b.NewFile("G-", ".fst")
			err = pipeline.WithScratch("", func(scratch string) error {
				textFST := filepath.Join(scratch, "text.fst")
				stages := s.arpaStages(G.ArpaFile, textFST, G.WordsFile, G.Filename, p.RemoveIllegal)
				return b.Run(ctx, b.Invocation("G-arpa", stages...))
			})
			if err != nil {
				return nil, err
			}
			return G, nil
		},
	})
	if err != nil {
		return domain.GrammarGraph{}, outcome, err
	}
	return domain.GrammarGraphFrom(attrs), outcome, nil
}

// AddG registers an existing grammar acceptor.
func (s *Service) AddG(fst string) domain.GrammarGraph {
	return domain.GrammarGraph{Filename: fst}
}

// arpaStages converts an ARPA file to a text FST and compiles the
// relabeled result into fst.
func (s *Service) arpaStages(arpaFile, textFST, wordsFile, fst string, removeIllegal bool) []domain.Stage {
	return []domain.Stage{
		{
			Name:  "arpa-to-fst",
			Chain: []domain.Process{domain.Cmd("arpa2fst", "-"), domain.Cmd("fstprint", "-", textFST)},
			Input: domain.FromGenerator(func(w io.Writer) error {
				return recipe.ScanFile(arpaFile, func(line string) error {
					if removeIllegal && s.illegalSequence(line) {
						return nil
					}
					_, err := io.WriteString(w, line+"\n")
					return err
				})
			}),
			Produces: []string{textFST},
		},
		{
			Name: "compile-grammar",
			Chain: []domain.Process{
				domain.Cmd("fstcompile",
					"--isymbols="+wordsFile,
					"--osymbols="+wordsFile,
					"--keep_isymbols=false",
					"--keep_osymbols=false"),
				domain.Cmd("fstrmepsilon"),
			},
			Input: domain.FromGenerator(func(w io.Writer) error {
				return recipe.ScanFile(textFST, func(line string) error {
					_, err := io.WriteString(w, s.relabelArc(line)+"\n")
					return err
				})
			}),
			Output:   domain.ToFile(fst),
			Produces: []string{fst},
		},
	}
}

// illegalSequence reports whether line contains a sentence boundary
// sequence that cannot occur: <s> <s>, </s> <s> or </s> </s>.
func (s *Service) illegalSequence(line string) bool {
	fields := strings.Fields(line)
	for i := 1; i < len(fields); i++ {
		prev, cur := fields[i-1], fields[i]
		switch {
		case prev == s.symbols.SentenceStart && cur == s.symbols.SentenceStart,
			prev == s.symbols.SentenceEnd && cur == s.symbols.SentenceStart,
			prev == s.symbols.SentenceEnd && cur == s.symbols.SentenceEnd:
			return true
		}
	}
	return false
}

// relabelArc rewrites one text FST arc for the grammar: input epsilons
// become the grammar disambiguation symbol and sentence boundaries become
// epsilons. Final-state lines pass through unchanged.
func (s *Service) relabelArc(line string) string {
	parts := strings.Fields(line)
	if len(parts) < 4 {
		return strings.Join(parts, " ")
	}
	switch parts[2] {
	case s.symbols.Epsilon:
		parts[2] = s.symbols.GrammarDisambig
	case s.symbols.SentenceStart, s.symbols.SentenceEnd:
		parts[2] = s.symbols.Epsilon
	}
	if parts[3] == s.symbols.SentenceStart || parts[3] == s.symbols.SentenceEnd {
		parts[3] = s.symbols.Epsilon
	}
	return strings.Join(parts, " ")
}

func ngramArgs(p domain.GrammarParams, trainFile, vocabFile, lmFile string) []string {
	args := []string{"-order", strconv.Itoa(p.Order)}
	if p.Interpolate {
		args = append(args, "-interpolate")
	}
	switch p.Discount {
	case domain.DiscountKneserNey:
		args = append(args, "-kndiscount")
	case domain.DiscountWittenBell:
		args = append(args, "-wbdiscount")
	}
	if p.LimitVocab {
		args = append(args, "-limit-vocab", "-vocab", vocabFile)
	}
	return append(args, "-text", trainFile, "-lm", lmFile)
}

// writeVocabulary writes the first column of the words table, one word per
// line, and returns it as a set.
func writeVocabulary(wordsFile, vocabFile string) (map[string]bool, error) {
	words, err := symtab.ReadVocabulary(wordsFile)
	if err != nil {
		return nil, err
	}
	vocab := make(map[string]bool, len(words))
	err = recipe.WriteLines(vocabFile, func(w *bufio.Writer) error {
		for _, word := range words {
			vocab[word] = true
			if _, err := fmt.Fprintln(w, word); err != nil {
				return err
			}
		}
		return nil
	})
	return vocab, err
}

// writeTrainingText strips utterance ids from transcripts and maps
// out-of-vocabulary words to unknown, or drops them.
func writeTrainingText(transcripts, trainFile string, vocab map[string]bool, keepUnknowns bool, unknown string) error {
	return recipe.WriteLines(trainFile, func(w *bufio.Writer) error {
		return recipe.ScanFile(transcripts, func(line string) error {
			fields := strings.Fields(line)
			if len(fields) == 0 {
				return nil
			}
			words := make([]string, 0, len(fields)-1)
			for _, word := range fields[1:] {
				switch {
				case vocab[word]:
					words = append(words, word)
				case keepUnknowns:
					words = append(words, unknown)
				}
			}
			_, err := fmt.Fprintln(w, strings.Join(words, " "))
			return err
		})
	})
}
