// Package lexprep converts the CMU Pronouncing Dictionary into the word
// table, phone table and lexicon the lexicon recipe consumes.
package lexprep

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/doeshing/skip-go/internal/application/recipe"
)

// Dictionary file names inside a CMU dictionary directory.
const (
	DictFile    = "cmudict.0.7a"
	SymbolsFile = "cmudict.0.7a.symbols"
)

// Reserved symbols written by the conversion.
const (
	silencePhone     = "SIL"
	spkNoisePhone    = "SPN"
	nonspkNoisePhone = "NSN"
	silenceWord      = "!SIL"
	spkNoiseWord     = "<SPOKEN-NOISE>"
	nonspkNoiseWord  = "<NOISE>"
	emptyStartWord   = "<s>"
	emptyEndWord     = "</s>"
	unknownWord      = "<UNK>"
	epsilon          = "<eps>"
	wordDisambig     = "#0"
	wordBoundLeft    = "#1"
	wordBoundRight   = "#2"
)

// Options selects what the conversion adds on top of the dictionary.
type Options struct {
	AddSilNoise   bool
	AddUnknown    bool
	AddEmpty      bool
	AddPosition   bool
	AddDisambig   bool
	AddWordBounds bool
}

// DefaultOptions enables everything but word boundary markers.
func DefaultOptions() Options {
	return Options{
		AddSilNoise: true,
		AddUnknown:  true,
		AddEmpty:    true,
		AddPosition: true,
		AddDisambig: true,
	}
}

// Outputs names the files to write.
type Outputs struct {
	WordsFile   string
	PhonesFile  string
	LexiconFile string
}

// Summary reports what was written.
type Summary struct {
	Words          int
	Phones         int
	MaxDisambigID  int
	Pronunciations int
}

// FromCMUDict reads <dictDir>/cmudict.0.7a and its symbols file and writes
// the three outputs.
func FromCMUDict(dictDir string, out Outputs, opts Options) (Summary, error) {
	prons, err := readPronunciations(filepath.Join(dictDir, DictFile), opts)
	if err != nil {
		return Summary{}, err
	}
	baseSymbols, err := readSymbols(filepath.Join(dictDir, SymbolsFile))
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Pronunciations: len(prons)}
	maxDisambig, words, err := writeLexiconAndWords(prons, out, opts)
	if err != nil {
		return Summary{}, err
	}
	summary.MaxDisambigID = maxDisambig
	summary.Words = words

	phones, err := writePhones(out.PhonesFile, baseSymbols, maxDisambig, opts)
	if err != nil {
		return Summary{}, err
	}
	summary.Phones = phones
	return summary, nil
}

func readPronunciations(path string, opts Options) (map[string]string, error) {
	prons := map[string]string{}
	if opts.AddSilNoise {
		prons[silenceWord] = silencePhone
		prons[spkNoiseWord] = spkNoisePhone
		prons[nonspkNoiseWord] = nonspkNoisePhone
	}
	if opts.AddUnknown {
		prons[unknownWord] = spkNoisePhone
	}
	if opts.AddEmpty {
		prons[emptyStartWord] = ""
		prons[emptyEndWord] = ""
	}

	err := recipe.ScanFile(path, func(line string) error {
		if strings.HasPrefix(line, ";;;") {
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil
		}
		word, phones := fields[0], fields[1:]
		if opts.AddPosition {
			phones = withPositions(phones)
		}
		prons[word] = strings.Join(phones, " ")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prons, nil
}

// withPositions marks word-begin, word-end and singleton phones.
func withPositions(phones []string) []string {
	out := append([]string(nil), phones...)
	switch len(out) {
	case 0:
	case 1:
		out[0] += "_S"
	default:
		out[0] += "_B"
		out[len(out)-1] += "_E"
	}
	return out
}

func readSymbols(path string) ([]string, error) {
	var symbols []string
	err := recipe.ScanFile(path, func(line string) error {
		if sym := strings.TrimSpace(line); sym != "" {
			symbols = append(symbols, sym)
		}
		return nil
	})
	return symbols, err
}

// prefixCounts counts, for every pronunciation prefix, how many
// pronunciations start with it. An empty pronunciation counts under "".
func prefixCounts(prons map[string]string) map[string]int {
	counts := map[string]int{}
	for _, pron := range prons {
		parts := strings.Fields(pron)
		if len(parts) == 0 {
			counts[""]++
			continue
		}
		for i := range parts {
			counts[strings.Join(parts[:i+1], " ")]++
		}
	}
	return counts
}

// stripVariant turns "WORD(2)" into "WORD". A leading parenthesis is part
// of the word.
func stripVariant(word string) string {
	if idx := strings.Index(word[1:], "("); idx >= 0 {
		return word[:idx+1]
	}
	return word
}

func writeLexiconAndWords(prons map[string]string, out Outputs, opts Options) (int, int, error) {
	keys := make([]string, 0, len(prons))
	for k := range prons {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	counts := prefixCounts(prons)
	next := map[string]int{}
	maxDisambig := 0
	wordID := 0

	err := recipe.WriteLines(out.LexiconFile, func(lex *bufio.Writer) error {
		return recipe.WriteLines(out.WordsFile, func(words *bufio.Writer) error {
			if _, err := fmt.Fprintf(words, "%s %d\n", epsilon, wordID); err != nil {
				return err
			}
			wordID++
			for _, key := range keys {
				pron := prons[key]
				disambig := ""
				if opts.AddDisambig && counts[pron] > 1 {
					if _, ok := next[pron]; !ok {
						next[pron] = 1
						if opts.AddWordBounds {
							next[pron] = 3
						}
					}
					id := next[pron]
					next[pron]++
					disambig = fmt.Sprintf(" #%d", id)
					if id > maxDisambig {
						maxDisambig = id
					}
				}

				word := stripVariant(key)
				left, right := "", ""
				if opts.AddWordBounds {
					left, right = wordBoundLeft+" ", " "+wordBoundRight
				}
				if _, err := fmt.Fprintf(lex, "%s %s%s%s%s\n", word, left, pron, disambig, right); err != nil {
					return err
				}
				if _, err := fmt.Fprintf(words, "%s %d\n", word, wordID); err != nil {
					return err
				}
				wordID++
			}
			_, err := fmt.Fprintf(words, "%s %d\n", wordDisambig, wordID)
			wordID++
			return err
		})
	})
	return maxDisambig, wordID, err
}

func writePhones(path string, base []string, maxDisambig int, opts Options) (int, error) {
	id := 0
	err := recipe.WriteLines(path, func(w *bufio.Writer) error {
		emit := func(sym string) error {
			_, err := fmt.Fprintf(w, "%s %d\n", sym, id)
			id++
			return err
		}
		if err := emit(epsilon); err != nil {
			return err
		}
		if opts.AddSilNoise {
			for _, sym := range []string{silencePhone, spkNoisePhone, nonspkNoisePhone} {
				if err := emit(sym); err != nil {
					return err
				}
			}
		}
		for _, sym := range base {
			if err := emit(sym); err != nil {
				return err
			}
			if opts.AddPosition {
				for _, suffix := range []string{"_B", "_E", "_S"} {
					if err := emit(sym + suffix); err != nil {
						return err
					}
				}
			}
		}
		if err := emit(wordDisambig); err != nil {
			return err
		}
		first := 1
		if opts.AddWordBounds {
			if err := emit(wordBoundLeft); err != nil {
				return err
			}
			if err := emit(wordBoundRight); err != nil {
				return err
			}
			first = 3
		}
		if opts.AddDisambig {
			for i := first; i <= maxDisambig; i++ {
				if err := emit(fmt.Sprintf("#%d", i)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return id, err
}

// EnsureDir creates the parent directories of every output.
func (o Outputs) EnsureDir() error {
	for _, p := range []string{o.WordsFile, o.PhonesFile, o.LexiconFile} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
	}
	return nil
}
