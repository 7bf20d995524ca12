package decode

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/infrastructure/symtab"
)

// AlignmentSymbols enables word and phone duration output. Both files
// must be given for durations to be computed.
type AlignmentSymbols struct {
	PhonesFile string
	LexiconFST string
}

// Enabled reports whether both alignment inputs are present.
func (a *AlignmentSymbols) Enabled() bool {
	return a != nil && a.PhonesFile != "" && a.LexiconFST != ""
}

// lengthJob computes per-utterance phone and word durations from an
// alignment archive.
type lengthJob struct {
	model      string
	alignments string
	// wordIDs holds the integer word sequence per utterance.
	wordIDs string
	words   *symtab.Table
	align   *AlignmentSymbols
	symbols domain.SymbolSettings
}

// newLengths allocates the four length files.
func newLengths(b *recipe.Build) domain.Lengths {
	return domain.Lengths{
		WordLens:     b.NewFile("wordlens-", ".txt"),
		IntWordLens:  b.NewFile("wordlens-", ".int"),
		PhoneLens:    b.NewFile("phonelens-", ".txt"),
		IntPhoneLens: b.NewFile("phonelens-", ".int"),
	}
}

func (j lengthJob) stages(out domain.Lengths) ([]domain.Stage, error) {
	phones, err := symtab.Read(j.align.PhonesFile)
	if err != nil {
		return nil, err
	}
	left, okL := phones.ID(j.symbols.WordBoundLeft)
	right, okR := phones.ID(j.symbols.WordBoundRight)
	if !okL || !okR {
		return nil, &domain.UnsupportedParameterError{
			Name:   "phonesfilealign",
			Value:  j.align.PhonesFile,
			Reason: fmt.Sprintf("missing word boundary symbols %s and %s", j.symbols.WordBoundLeft, j.symbols.WordBoundRight),
		}
	}

	return []domain.Stage{
		{
			Name: "phone-lengths",
			Chain: []domain.Process{
				domain.Cmd("ali-to-phones", "--write-lengths=true", j.model, "ark:"+j.alignments, "ark,t:-"),
			},
			Output: domain.ToConsumer(func(r io.Reader) error {
				return translateLengths(r, out.IntPhoneLens, out.PhoneLens, phones, j.symbols.DecodeOOVPhone)
			}),
			Produces: []string{out.IntPhoneLens, out.PhoneLens},
		},
		{
			Name: "word-lengths",
			Chain: []domain.Process{
				domain.Cmd("ali-to-phones", j.model, "ark:"+j.alignments, "ark:-"),
				domain.Cmd("phones-to-prons", j.align.LexiconFST,
					strconv.Itoa(left), strconv.Itoa(right),
					"ark:-", "ark,t:"+j.wordIDs, "ark:-"),
				domain.Cmd("prons-to-word-ali", "ark:-", "ark,t:"+out.IntPhoneLens, "ark,t:-"),
			},
			Output: domain.ToConsumer(func(r io.Reader) error {
				return translateLengths(r, out.IntWordLens, out.WordLens, j.words, j.symbols.DecodeOOVWord)
			}),
			Produces: []string{out.IntWordLens, out.WordLens},
		},
	}, nil
}

// translateLengths copies "utt id n ; id n ; ..." lines to intPath and
// writes "utt sym n ; sym n" to textPath.
func translateLengths(r io.Reader, intPath, textPath string, table *symtab.Table, oov string) error {
	return writePair(intPath, textPath, func(intOut, textOut *bufio.Writer) error {
		return recipe.ScanLines(r, func(line string) error {
			utt, rest, ok := strings.Cut(strings.TrimSpace(line), " ")
			if !ok {
				utt, rest = strings.TrimSpace(line), ""
			}
			if utt == "" {
				return nil
			}
			var pairs []string
			for _, pair := range strings.Split(rest, ";") {
				fields := strings.Fields(pair)
				if len(fields) < 2 {
					continue
				}
				pairs = append(pairs, table.SymbolOr(fields[0], oov)+" "+fields[1])
			}
			if _, err := fmt.Fprintln(intOut, line); err != nil {
				return err
			}
			_, err := fmt.Fprintf(textOut, "%s %s\n", utt, strings.Join(pairs, " ; "))
			return err
		})
	})
}

// translateWords copies "utt id id ..." lines to intPath and writes the
// word sequence to textPath.
func translateWords(r io.Reader, intPath, textPath string, table *symtab.Table, oov string) error {
	return writePair(intPath, textPath, func(intOut, textOut *bufio.Writer) error {
		return recipe.ScanLines(r, func(line string) error {
			fields := strings.Fields(line)
			if len(fields) == 0 {
				return nil
			}
			words := make([]string, 0, len(fields)-1)
			for _, id := range fields[1:] {
				words = append(words, table.SymbolOr(id, oov))
			}
			if _, err := fmt.Fprintln(intOut, line); err != nil {
				return err
			}
			_, err := fmt.Fprintln(textOut, strings.TrimSpace(fields[0]+" "+strings.Join(words, " ")))
			return err
		})
	})
}

func writePair(intPath, textPath string, fn func(intOut, textOut *bufio.Writer) error) error {
	return recipe.WriteLines(intPath, func(intOut *bufio.Writer) error {
		return recipe.WriteLines(textPath, func(textOut *bufio.Writer) error {
			return fn(intOut, textOut)
		})
	})
}

// stampTarget pairs a source with the field its build-time stamp goes to.
type stampTarget struct {
	path string
	dst  *domain.Stamp
}

// stampAll records the current modification time of each source.
func stampAll(b *recipe.Build, targets ...stampTarget) error {
	for _, t := range targets {
		s, err := b.Stamp(t.path)
		if err != nil {
			return err
		}
		*t.dst = s
	}
	return nil
}
