package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/skip-go/internal/domain"
)

func testService() *Service {
	return NewService(nil, domain.SymbolSettings{})
}

func TestRelabelArc(t *testing.T) {
	s := testService()
	cases := map[string]string{
		"0 1 <eps> <eps>":     "0 1 #0 <eps>",
		"0 1 <s> <s> 1.5":     "0 1 <eps> <eps> 1.5",
		"2 3 </s> </s>":       "2 3 <eps> <eps>",
		"1 2 HELLO HELLO 0.2": "1 2 HELLO HELLO 0.2",
		"3\t0.5":              "3 0.5",
	}
	for in, want := range cases {
		assert.Equal(t, want, s.relabelArc(in), in)
	}
}

func TestIllegalSequence(t *testing.T) {
	s := testService()
	assert.True(t, s.illegalSequence("-1.2\t<s> <s>"))
	assert.True(t, s.illegalSequence("-0.5\t</s> <s> A"))
	assert.True(t, s.illegalSequence("-0.5\tA </s> </s>"))
	assert.False(t, s.illegalSequence("-0.5\t<s> A </s>"))
	assert.False(t, s.illegalSequence("ngram 1=3"))
	assert.False(t, s.illegalSequence("-0.5\t<s>s <s>"))
}

func TestNgramArgs(t *testing.T) {
	got := ngramArgs(domain.DefaultGrammarParams(), "train", "vocab", "lm")
	assert.Equal(t, []string{"-order", "3", "-interpolate", "-kndiscount", "-text", "train", "-lm", "lm"}, got)

	p := domain.GrammarParams{Order: 2, Discount: domain.DiscountGoodTuring, LimitVocab: true}
	got = ngramArgs(p, "train", "vocab", "lm")
	assert.Equal(t, []string{"-order", "2", "-limit-vocab", "-vocab", "vocab", "-text", "train", "-lm", "lm"}, got)

	p = domain.GrammarParams{Order: 1, Discount: domain.DiscountWittenBell}
	got = ngramArgs(p, "train", "vocab", "lm")
	assert.Equal(t, []string{"-order", "1", "-wbdiscount", "-text", "train", "-lm", "lm"}, got)
}

func TestWriteTrainingText(t *testing.T) {
	dir := t.TempDir()
	transcripts := filepath.Join(dir, "trans.txt")
	require.NoError(t, os.WriteFile(transcripts, []byte("u1 A B ZZ\n\nu2 ZZ\n"), 0o644))
	vocab := map[string]bool{"A": true, "B": true}

	keep := filepath.Join(dir, "keep.txt")
	require.NoError(t, writeTrainingText(transcripts, keep, vocab, true, "<UNK>"))
	data, err := os.ReadFile(keep)
	require.NoError(t, err)
	assert.Equal(t, "A B <UNK>\n<UNK>\n", string(data))

	drop := filepath.Join(dir, "drop.txt")
	require.NoError(t, writeTrainingText(transcripts, drop, vocab, false, "<UNK>"))
	data, err = os.ReadFile(drop)
	require.NoError(t, err)
	assert.Equal(t, "A B\n\n", string(data))
}

func TestWriteVocabulary(t *testing.T) {
	dir := t.TempDir()
	words := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(words, []byte("<eps> 0\nA 1\nB 2\n"), 0o644))

	vocab, err := writeVocabulary(words, filepath.Join(dir, "vocab.txt"))
	require.NoError(t, err)
	assert.True(t, vocab["A"])
	assert.True(t, vocab["B"])

	data, err := os.ReadFile(filepath.Join(dir, "vocab.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "A\nB\n")
}

func TestGrammarParamsRejectedBeforeBuild(t *testing.T) {
	s := testService()
	p := domain.DefaultGrammarParams()
	p.Discount = domain.DiscountGoodTuring
	_, _, err := s.MakeG(context.Background(), t.TempDir(), domain.LexiconGraph{}, "trans", p)
	assert.ErrorIs(t, err, domain.ErrUnsupportedParameter)
}
