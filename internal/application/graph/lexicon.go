package graph

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"

	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/infrastructure/pipeline"
	"github.com/doeshing/skip-go/internal/infrastructure/symtab"
	"github.com/doeshing/skip-go/internal/pkg/canonical"
)

// LexiconSources are the user files the lexicon transducer is built from.
type LexiconSources struct {
	PhonesFile  string
	WordsFile   string
	LexiconFile string
}

// MakeL builds (or returns the cached) lexicon transducer.
func (s *Service) MakeL(ctx context.Context, contextDir string, src LexiconSources, p domain.LexiconParams) (domain.LexiconGraph, recipe.Outcome, error) {
	if err := p.Validate(); err != nil {
		return domain.LexiconGraph{}, recipe.Outcome{}, err
	}
	dir := recipe.StageDir(contextDir, domain.StageLexicon)
	params := canonical.New("L").
		Path("phonesfile", src.PhonesFile).
		Path("wordsfile", src.WordsFile).
		Path("lexiconfile", src.LexiconFile).
		Bool("addsilence", p.AddSilence).
		Float("silenceprobability", p.SilenceProbability).
		Str("epsilon", s.symbols.Epsilon).
		Str("silencephone", s.symbols.SilencePhone).
		Str("disambig", s.symbols.GrammarDisambig)

	attrs, outcome, err := s.engine.Ensure(ctx, recipe.Request{
		Dir:    dir,
		Params: params,
		Dependencies: func(prev domain.Attributes) []domain.DependencyPair {
			old := domain.LexiconGraphFrom(prev)
			return []domain.DependencyPair{
				domain.PathPair(src.PhonesFile, old.PhonesFile),
				domain.PathPair(src.WordsFile, old.WordsFile),
				domain.PathPair(src.LexiconFile, old.LexiconFile),
			}
		},
		Build: func(ctx context.Context, b *recipe.Build) (domain.Artifact, error) {
			return s.buildL(ctx, b, src, p)
		},
	})
	if err != nil {
		return domain.LexiconGraph{}, outcome, err
	}
	return domain.LexiconGraphFrom(attrs), outcome, nil
}

func (s *Service) buildL(ctx context.Context, b *recipe.Build, src LexiconSources, p domain.LexiconParams) (domain.Artifact, error) {
	var (
		L   domain.LexiconGraph
		err error
	)
	if L.PhonesFile, err = b.CopySource(src.PhonesFile, "phones-", ".txt"); err != nil {
		return nil, err
	}
	if L.WordsFile, err = b.CopySource(src.WordsFile, "words-", ".txt"); err != nil {
		return nil, err
	}
	if L.LexiconFile, err = b.CopySource(src.LexiconFile, "lexicon-", ".txt"); err != nil {
		return nil, err
	}
	L.Filename = b.NewFile("L-", ".fst")

	entries, err := symtab.ReadLexicon(L.LexiconFile)
	if err != nil {
		return nil, err
	}
	phones, err := symtab.Read(L.PhonesFile)
	if err != nil {
		return nil, err
	}
	words, err := symtab.Read(L.WordsFile)
	if err != nil {
		return nil, err
	}

	err = pipeline.WithScratch("", func(scratch string) error {
		chain := []domain.Process{
			domain.Cmd("fstcompile",
				"--isymbols="+L.PhonesFile,
				"--osymbols="+L.WordsFile,
				"--keep_isymbols=false",
				"--keep_osymbols=false"),
		}
		phoneDisambig, okP := phones.ID(s.symbols.GrammarDisambig)
		wordDisambig, okW := words.ID(s.symbols.GrammarDisambig)
		if okP && okW {
			phoneList := filepath.Join(scratch, "phone_disambig.int")
			wordList := filepath.Join(scratch, "word_disambig.int")
			if err := writeInts(phoneList, phoneDisambig); err != nil {
				return err
			}
			if err := writeInts(wordList, wordDisambig); err != nil {
				return err
			}
			chain = append(chain, domain.Cmd("fstaddselfloops", phoneList, wordList))
		}
		chain = append(chain, domain.Cmd("fstarcsort", "--sort_type=olabel"))

		return b.Run(ctx, b.Invocation("L",
			domain.Stage{
				Name:  "compile-lexicon",
				Chain: chain,
				Input: domain.FromGenerator(func(w io.Writer) error {
					return WriteLexiconFST(w, entries, p, s.symbols)
				}),
				Output:   domain.ToFile(L.Filename),
				Produces: []string{L.Filename},
			},
		))
	})
	if err != nil {
		return nil, err
	}
	return L, nil
}

// AddL registers an existing lexicon transducer without building it.
func (s *Service) AddL(fst, phonesFile, wordsFile string) domain.LexiconGraph {
	return domain.LexiconGraph{Filename: fst, PhonesFile: phonesFile, WordsFile: wordsFile}
}

// WriteLexiconFST writes the lexicon transducer in OpenFST text format.
//
// With silence the start state 0 enters the loop state 1 either directly
// or through the silence phone, and every word may end in the silence
// state 2. Word chains use fresh states from 3 (1 without silence).
func WriteLexiconFST(w io.Writer, entries []symtab.Entry, p domain.LexiconParams, sym domain.SymbolSettings) error {
	ew := &errWriter{w: w}
	var (
		loopState, silenceState, nextState int
		silCost, noSilCost                 string
	)
	if p.AddSilence {
		silCost = formatCost(-math.Log(p.SilenceProbability))
		noSilCost = formatCost(-math.Log(1 - p.SilenceProbability))
		loopState, silenceState, nextState = 1, 2, 3
		ew.printf("%d %d %s %s %s\n", 0, loopState, sym.Epsilon, sym.Epsilon, noSilCost)
		ew.printf("%d %d %s %s %s\n", 0, loopState, sym.SilencePhone, sym.Epsilon, silCost)
		ew.printf("%d %d %s %s\n", silenceState, loopState, sym.SilencePhone, sym.Epsilon)
	} else {
		loopState, nextState = 0, 1
	}

	for _, entry := range entries {
		word := entry.Word
		cur := loopState
		for i, phone := range entry.Phones {
			if i < len(entry.Phones)-1 {
				ew.printf("%d %d %s %s\n", cur, nextState, phone, word)
				cur = nextState
				nextState++
			} else if !p.AddSilence || phone == sym.SilencePhone {
				ew.printf("%d %d %s %s\n", cur, loopState, phone, word)
			} else {
				ew.printf("%d %d %s %s %s\n", cur, loopState, phone, word, noSilCost)
				ew.printf("%d %d %s %s %s\n", cur, silenceState, phone, word, silCost)
			}
			word = sym.Epsilon
		}
	}
	ew.printf("%d 0\n", loopState)
	return ew.err
}

func formatCost(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeInts(path string, ids ...int) error {
	return recipe.WriteLines(path, func(w *bufio.Writer) error {
		for _, id := range ids {
			if _, err := fmt.Fprintf(w, "%d\n", id); err != nil {
				return err
			}
		}
		return nil
	})
}

// errWriter keeps the first write error so long runs of printf calls need
// a single check.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
