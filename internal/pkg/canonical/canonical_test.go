package canonical

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSortsKeysAndFormatsScalars(t *testing.T) {
	p := New("L").
		Float("silenceprobability", 0.5).
		Bool("addsilence", true).
		Int("order", 3).
		Str("discount", "kn")

	assert.Equal(t, `L{addsilence=true, discount="kn", order=3, silenceprobability=0.5}`, p.String())
}

func TestPathResolvesRelativeSpellings(t *testing.T) {
	dir := t.TempDir()
	prev, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(prev) })
	require.NoError(t, os.Chdir(dir))

	wd, err := os.Getwd()
	require.NoError(t, err)

	rel := New("G").Path("wordsfile", "./words.txt").String()
	abs := New("G").Path("wordsfile", filepath.Join(wd, "sub", "..", "words.txt")).String()
	assert.Equal(t, abs, rel)
}

func TestFloatFoldsNegativeZero(t *testing.T) {
	negZero := 0.0
	negZero = -negZero
	assert.Equal(t, New("x").Float("v", 0).String(), New("x").Float("v", negZero).String())
}

func TestFingerprintIsStableAndShort(t *testing.T) {
	a := New("HCLG").Int("contextsize", 3).Fingerprint()
	b := New("HCLG").Int("contextsize", 3).Fingerprint()
	c := New("HCLG").Int("contextsize", 1).Fingerprint()

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, fingerprintLen)
}

func TestInsertionOrderDoesNotMatter(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("forward and reverse insertion encode identically", prop.ForAll(
		func(keys []string, value int) bool {
			forward := New("stage")
			reverse := New("stage")
			for i, k := range keys {
				forward.Int(k, value+i)
			}
			for i := len(keys) - 1; i >= 0; i-- {
				reverse.Int(keys[i], value+i)
			}
			return forward.String() == reverse.String()
		},
		gen.SliceOf(gen.Identifier()).SuchThat(func(keys []string) bool {
			seen := map[string]bool{}
			for _, k := range keys {
				if seen[k] {
					return false
				}
				seen[k] = true
			}
			return true
		}),
		gen.IntRange(-1000, 1000),
	))

	properties.Property("different values encode differently", prop.ForAll(
		func(a, b float64) bool {
			same := New("s").Float("p", a).String() == New("s").Float("p", b).String()
			return same == (a == b)
		},
		gen.Float64Range(-10, 10),
		gen.Float64Range(-10, 10),
	))

	properties.TestingRun(t)
}
