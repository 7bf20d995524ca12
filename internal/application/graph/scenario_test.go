package graph

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/skip-go/internal/application/recipe/recipetest"
	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/infrastructure/fingerprint"
	"github.com/doeshing/skip-go/internal/infrastructure/symtab"
)

const fstprintScript = `cat > "$2"`

const ngramScript = `while [ $# -gt 0 ]; do
  case "$1" in
    -text) text="$2"; shift ;;
    -lm) lm="$2"; shift ;;
  esac
  shift
done
cp "$text" "$lm"`

const failDrainScript = `cat > /dev/null
echo "fake failure" >&2
exit 3`

type graphFixture struct {
	tools   *recipetest.Tools
	service *Service
	ctxDir  string
	src     LexiconSources
}

func newGraphFixture(t *testing.T) *graphFixture {
	t.Helper()
	tools := recipetest.NewTools(t, map[string]string{
		"fstprint":    fstprintScript,
		"ngram-count": ngramScript,
	})
	srcDir := t.TempDir()
	src := LexiconSources{
		PhonesFile:  filepath.Join(srcDir, "phones.txt"),
		WordsFile:   filepath.Join(srcDir, "words.txt"),
		LexiconFile: filepath.Join(srcDir, "lexicon.txt"),
	}
	past := time.Now().Add(-time.Hour)
	for path, content := range map[string]string{
		src.PhonesFile:  "<eps> 0\nSIL 1\nAH 2\nB 3\n#0 4\n#1 5\n",
		src.WordsFile:   "<eps> 0\nA 1\nAB 2\n#0 3\n",
		src.LexiconFile: "A AH\nAB AH B\n",
	} {
		writeAt(t, path, content, past)
	}
	return &graphFixture{
		tools:   tools,
		service: NewService(recipetest.NewEngine(tools), domain.SymbolSettings{}),
		ctxDir:  filepath.Join(t.TempDir(), "ctx"),
		src:     src,
	}
}

func writeAt(t *testing.T, path, content string, when time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, when, when))
}

func touch(t *testing.T, path string) {
	t.Helper()
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))
}

func indexFiles(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*"+domain.IndexSuffix))
	require.NoError(t, err)
	return files
}

func TestMakeLBuildsThenHits(t *testing.T) {
	f := newGraphFixture(t)
	ctx := context.Background()

	L, outcome, err := f.service.MakeL(ctx, f.ctxDir, f.src, domain.DefaultLexiconParams())
	require.NoError(t, err)
	assert.False(t, outcome.CacheHit)
	assert.True(t, f.tools.Called(t, "fstcompile"))
	assert.True(t, f.tools.Called(t, "fstaddselfloops"))
	assert.True(t, f.tools.Called(t, "fstarcsort"))

	entries, err := symtab.ReadLexicon(f.src.LexiconFile)
	require.NoError(t, err)
	var want bytes.Buffer
	require.NoError(t, WriteLexiconFST(&want, entries, domain.DefaultLexiconParams(), domain.DefaultSymbols()))
	got, err := os.ReadFile(L.Filename)
	require.NoError(t, err)
	assert.Equal(t, want.String(), string(got))
	assert.Equal(t, filepath.Join(f.ctxDir, domain.StageLexicon), filepath.Dir(L.Filename))

	log, err := os.ReadFile(outcome.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(log), "# fstarcsort --sort_type=olabel")

	f.tools.Reset(t)
	again, outcome, err := f.service.MakeL(ctx, f.ctxDir, f.src, domain.DefaultLexiconParams())
	require.NoError(t, err)
	assert.True(t, outcome.CacheHit)
	assert.Equal(t, L, again)
	assert.Empty(t, f.tools.Calls(t))
}

func TestMakeLRebuildsAfterSourceChange(t *testing.T) {
	f := newGraphFixture(t)
	ctx := context.Background()
	first, _, err := f.service.MakeL(ctx, f.ctxDir, f.src, domain.DefaultLexiconParams())
	require.NoError(t, err)

	touch(t, f.src.LexiconFile)
	f.tools.Reset(t)
	second, outcome, err := f.service.MakeL(ctx, f.ctxDir, f.src, domain.DefaultLexiconParams())
	require.NoError(t, err)
	assert.False(t, outcome.CacheHit)
	assert.True(t, f.tools.Called(t, "fstcompile"))
	assert.NotEqual(t, first.Filename, second.Filename)
	assert.NoFileExists(t, first.Filename)
	assert.NoFileExists(t, first.LexiconFile)
	assert.FileExists(t, second.Filename)
	assert.Len(t, indexFiles(t, filepath.Join(f.ctxDir, domain.StageLexicon)), 1)
}

func TestMakeLKeepsOneEntryPerParameterSet(t *testing.T) {
	f := newGraphFixture(t)
	ctx := context.Background()
	half := domain.DefaultLexiconParams()
	low := domain.LexiconParams{AddSilence: true, SilenceProbability: 0.3}

	a, _, err := f.service.MakeL(ctx, f.ctxDir, f.src, half)
	require.NoError(t, err)
	b, _, err := f.service.MakeL(ctx, f.ctxDir, f.src, low)
	require.NoError(t, err)
	assert.NotEqual(t, a.Filename, b.Filename)
	assert.Len(t, indexFiles(t, filepath.Join(f.ctxDir, domain.StageLexicon)), 2)

	_, outcome, err := f.service.MakeL(ctx, f.ctxDir, f.src, half)
	require.NoError(t, err)
	assert.True(t, outcome.CacheHit)
	_, outcome, err = f.service.MakeL(ctx, f.ctxDir, f.src, low)
	require.NoError(t, err)
	assert.True(t, outcome.CacheHit)
}

func TestMakeLFailureKeepsPreviousArtifact(t *testing.T) {
	f := newGraphFixture(t)
	ctx := context.Background()
	first, _, err := f.service.MakeL(ctx, f.ctxDir, f.src, domain.DefaultLexiconParams())
	require.NoError(t, err)

	touch(t, f.src.PhonesFile)
	f.tools.Write(t, "fstarcsort", failDrainScript)
	_, outcome, err := f.service.MakeL(ctx, f.ctxDir, f.src, domain.DefaultLexiconParams())

	var failure *domain.ToolFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "fstarcsort", failure.Tool)
	assert.Equal(t, 3, failure.ExitCode)
	assert.Equal(t, outcome.LogPath, failure.LogPath)
	log, err := os.ReadFile(failure.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(log), "fake failure")

	assert.FileExists(t, first.Filename)
	assert.FileExists(t, first.PhonesFile)

	f.tools.Write(t, "fstarcsort", recipetest.DefaultScript)
	second, outcome, err := f.service.MakeL(ctx, f.ctxDir, f.src, domain.DefaultLexiconParams())
	require.NoError(t, err)
	assert.False(t, outcome.CacheHit)
	assert.NoFileExists(t, first.Filename)
	assert.FileExists(t, second.Filename)
}

func TestMakeLRejectsBadProbabilityWithoutRunning(t *testing.T) {
	f := newGraphFixture(t)
	_, _, err := f.service.MakeL(context.Background(), f.ctxDir, f.src,
		domain.LexiconParams{AddSilence: true, SilenceProbability: 1})
	assert.ErrorIs(t, err, domain.ErrUnsupportedParameter)
	assert.Empty(t, f.tools.Calls(t))
}

func TestMakeLMissingSource(t *testing.T) {
	f := newGraphFixture(t)
	require.NoError(t, os.Remove(f.src.WordsFile))
	_, _, err := f.service.MakeL(context.Background(), f.ctxDir, f.src, domain.DefaultLexiconParams())
	assert.ErrorIs(t, err, domain.ErrMissingDependency)
	assert.Empty(t, f.tools.Calls(t))

	records, err := filepath.Glob(filepath.Join(f.ctxDir, "*", "*"+domain.IndexSuffix))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMakeGArpaFiltersIllegalSequences(t *testing.T) {
	f := newGraphFixture(t)
	ctx := context.Background()
	L, _, err := f.service.MakeL(ctx, f.ctxDir, f.src, domain.DefaultLexiconParams())
	require.NoError(t, err)

	arpa := filepath.Join(t.TempDir(), "lm.arpa")
	writeAt(t, arpa, "\\data\\\nngram 2=2\n\n\\2-grams:\n-0.5\t<s> A\n-2.0\t<s> <s>\n\n\\end\\\n", time.Now().Add(-time.Hour))

	G, outcome, err := f.service.MakeGArpa(ctx, f.ctxDir, L, arpa, domain.DefaultArpaParams())
	require.NoError(t, err)
	assert.False(t, outcome.CacheHit)
	data, err := os.ReadFile(G.Filename)
	require.NoError(t, err)
	assert.Contains(t, string(data), "-0.5 <s> A")
	assert.NotContains(t, string(data), "<s> <s>")
	assert.FileExists(t, G.ArpaFile)
	assert.FileExists(t, G.WordsFile)

	raw, _, err := f.service.MakeGArpa(ctx, f.ctxDir, L, arpa, domain.ArpaParams{RemoveIllegal: false})
	require.NoError(t, err)
	data, err = os.ReadFile(raw.Filename)
	require.NoError(t, err)
	assert.Contains(t, string(data), "-2.0 <s> <s>")

	_, outcome, err = f.service.MakeGArpa(ctx, f.ctxDir, L, arpa, domain.DefaultArpaParams())
	require.NoError(t, err)
	assert.True(t, outcome.CacheHit)
}

func TestMakeGEstimatesFromTranscripts(t *testing.T) {
	f := newGraphFixture(t)
	ctx := context.Background()
	L, _, err := f.service.MakeL(ctx, f.ctxDir, f.src, domain.DefaultLexiconParams())
	require.NoError(t, err)

	transcripts := filepath.Join(t.TempDir(), "text")
	writeAt(t, transcripts, "utt1 A ZZ\nutt2 AB A\n", time.Now().Add(-time.Hour))

	G, outcome, err := f.service.MakeG(ctx, f.ctxDir, L, transcripts, domain.DefaultGrammarParams())
	require.NoError(t, err)
	assert.False(t, outcome.CacheHit)
	assert.True(t, f.tools.Called(t, "ngram-count"))
	data, err := os.ReadFile(G.Filename)
	require.NoError(t, err)
	assert.Equal(t, "A <UNK>\nAB A\n", string(data))

	touch(t, transcripts)
	_, outcome, err = f.service.MakeG(ctx, f.ctxDir, L, transcripts, domain.DefaultGrammarParams())
	require.NoError(t, err)
	assert.False(t, outcome.CacheHit)
	assert.NoFileExists(t, G.Filename)
}

func TestMakeHCLGTracksSourceTimes(t *testing.T) {
	f := newGraphFixture(t)
	ctx := context.Background()
	L, _, err := f.service.MakeL(ctx, f.ctxDir, f.src, domain.DefaultLexiconParams())
	require.NoError(t, err)
	G := f.service.AddG(L.Filename)

	modelDir := t.TempDir()
	mdl := domain.AcousticModel{
		Filename: filepath.Join(modelDir, "final.mdl"),
		TreeFile: filepath.Join(modelDir, "tree"),
	}
	past := time.Now().Add(-time.Hour)
	writeAt(t, mdl.Filename, "model", past)
	writeAt(t, mdl.TreeFile, "tree", past)

	f.tools.Reset(t)
	HCLG, outcome, err := f.service.MakeHCLG(ctx, f.ctxDir, L, G, mdl, domain.DefaultDecodeGraphParams())
	require.NoError(t, err)
	assert.False(t, outcome.CacheHit)
	assert.FileExists(t, HCLG.Filename)
	assert.Equal(t, past.Unix(), HCLG.ModelTime.Unix)
	for _, tool := range []string{"fsttablecompose", "fstcomposecontext", "make-h-transducer", "fstrmsymbols", "add-self-loops"} {
		assert.True(t, f.tools.Called(t, tool), tool)
	}

	_, outcome, err = f.service.MakeHCLG(ctx, f.ctxDir, L, G, mdl, domain.DefaultDecodeGraphParams())
	require.NoError(t, err)
	assert.True(t, outcome.CacheHit)

	touch(t, mdl.Filename)
	rebuilt, outcome, err := f.service.MakeHCLG(ctx, f.ctxDir, L, G, mdl, domain.DefaultDecodeGraphParams())
	require.NoError(t, err)
	assert.False(t, outcome.CacheHit)
	assert.NoFileExists(t, HCLG.Filename)
	assert.Greater(t, rebuilt.ModelTime.Unix, past.Unix())
}

func TestMakeHCLGStageFailureCommitsNothing(t *testing.T) {
	f := newGraphFixture(t)
	ctx := context.Background()
	L, _, err := f.service.MakeL(ctx, f.ctxDir, f.src, domain.DefaultLexiconParams())
	require.NoError(t, err)
	G := f.service.AddG(L.Filename)

	modelDir := t.TempDir()
	mdl := domain.AcousticModel{
		Filename: filepath.Join(modelDir, "final.mdl"),
		TreeFile: filepath.Join(modelDir, "tree"),
	}
	past := time.Now().Add(-time.Hour)
	writeAt(t, mdl.Filename, "model", past)
	writeAt(t, mdl.TreeFile, "tree", past)

	f.tools.Reset(t)
	f.tools.Write(t, "fstcomposecontext", failDrainScript)
	_, _, err = f.service.MakeHCLG(ctx, f.ctxDir, L, G, mdl, domain.DefaultDecodeGraphParams())
	var failure *domain.ToolFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "fstcomposecontext", failure.Tool)
	assert.False(t, f.tools.Called(t, "make-h-transducer"))
	assert.False(t, f.tools.Called(t, "add-self-loops"))

	entries, err := fingerprint.NewStore(nil).Entries(filepath.Join(f.ctxDir, domain.StageDecodeGraph))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, e.Populated(), e.IndexFile)
	}

	f.tools.Reset(t)
	f.tools.Write(t, "fstcomposecontext", recipetest.DefaultScript)
	HCLG, outcome, err := f.service.MakeHCLG(ctx, f.ctxDir, L, G, mdl, domain.DefaultDecodeGraphParams())
	require.NoError(t, err)
	assert.False(t, outcome.CacheHit)
	assert.FileExists(t, HCLG.Filename)
	for _, tool := range []string{"fstcomposecontext", "make-h-transducer", "add-self-loops"} {
		assert.True(t, f.tools.Called(t, tool), tool)
	}
}

func TestMakeHCLGRejectsBadContext(t *testing.T) {
	f := newGraphFixture(t)
	p := domain.DefaultDecodeGraphParams()
	p.CentralPosition = 5
	_, _, err := f.service.MakeHCLG(context.Background(), f.ctxDir, domain.LexiconGraph{}, domain.GrammarGraph{}, domain.AcousticModel{}, p)
	assert.ErrorIs(t, err, domain.ErrUnsupportedParameter)
}
