package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/skip-go/internal/application/recipe/recipetest"
	"github.com/doeshing/skip-go/internal/domain"
)

type harness struct {
	configPath string
	contexts   string
	tools      *recipetest.Tools
}

func newHarness(t *testing.T, extra string) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		configPath: filepath.Join(dir, "config.yaml"),
		contexts:   filepath.Join(dir, "contexts"),
		tools:      recipetest.NewTools(t, map[string]string{"fstprint": `cat > "$2"`}),
	}
	yaml := "contexts_dir: " + h.contexts + "\n" +
		"tool_dirs:\n  - " + h.tools.Dir + "\n" +
		"history:\n  enabled: true\n  path: " + filepath.Join(dir, "history.jsonl") + "\n" +
		extra
	require.NoError(t, os.WriteFile(h.configPath, []byte(yaml), 0o600))
	return h
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(Options{})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--config", h.configPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeLexiconInputs(t *testing.T) (phones, words, lexicon string) {
	t.Helper()
	dir := t.TempDir()
	phones = filepath.Join(dir, "phones.txt")
	words = filepath.Join(dir, "words.txt")
	lexicon = filepath.Join(dir, "lexicon.txt")
	past := time.Now().Add(-time.Hour)
	for path, content := range map[string]string{
		phones:  "<eps> 0\nSIL 1\nAH 2\nB 3\n#0 4\n#1 5\n",
		words:   "<eps> 0\nA 1\nAB 2\n#0 3\n",
		lexicon: "A AH\nAB AH B\n",
	} {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		require.NoError(t, os.Chtimes(path, past, past))
	}
	return phones, words, lexicon
}

func TestLexiconBuildsOnceThenHitsCache(t *testing.T) {
	h := newHarness(t, "")
	phones, words, lexicon := writeLexiconInputs(t)
	args := []string{"--context", "digits", "lexicon", "--phones", phones, "--words", words, "--lexicon", lexicon}

	out, err := h.run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "L_graphs: built")
	assert.True(t, h.tools.Called(t, "fstcompile"))

	h.tools.Reset(t)
	out, err = h.run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "L_graphs: cached")
	assert.Empty(t, h.tools.Calls(t))

	out, err = h.run(t, "--context", "digits", "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, domain.StageLexicon+" | ")

	out, err = h.run(t, "history", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "| cached |")
	assert.Contains(t, lines[1], "| built |")

	out, err = h.run(t, "context", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "digits | 1 entries")

	out, err = h.run(t, "--context", "digits", "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 cache entries from digits")
}

func TestLexiconRequiresInputs(t *testing.T) {
	h := newHarness(t, "")
	_, err := h.run(t, "lexicon", "--phones", "p.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestRegisterMissingFileFails(t *testing.T) {
	h := newHarness(t, "")
	_, err := h.run(t, "grammar", "add", "--fst", filepath.Join(t.TempDir(), "G.fst"))
	assert.ErrorIs(t, err, domain.ErrMissingDependency)
}

func TestGraphUsesRegisteredInputs(t *testing.T) {
	h := newHarness(t, "")
	phones, words, lexicon := writeLexiconInputs(t)

	modelDir := t.TempDir()
	model := filepath.Join(modelDir, "final.mdl")
	tree := filepath.Join(modelDir, "tree")
	past := time.Now().Add(-time.Hour)
	for _, path := range []string{model, tree} {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		require.NoError(t, os.Chtimes(path, past, past))
	}
	graphArgs := []string{"--context", "digits", "graph", "--model", model, "--tree", tree}

	_, err := h.run(t, graphArgs...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'lexicon add'")

	out, err := h.run(t, "--context", "digits", "lexicon", "--phones", phones, "--words", words, "--lexicon", lexicon)
	require.NoError(t, err)
	fst := reportedPath(t, out, "fst")

	_, err = h.run(t, "--context", "digits", "lexicon", "add", "--fst", fst, "--phones", phones, "--words", words)
	require.NoError(t, err)
	_, err = h.run(t, graphArgs...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'grammar add'")

	out, err = h.run(t, "--context", "digits", "grammar", "add", "--fst", fst)
	require.NoError(t, err)
	assert.Contains(t, out, "grammar: registered")

	out, err = h.run(t, graphArgs...)
	require.NoError(t, err)
	assert.Contains(t, out, domain.StageDecodeGraph+": built")
}

// reportedPath returns the value printed after label in a build report.
func reportedPath(t *testing.T, out, label string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), label+":"); ok {
			return strings.TrimSpace(v)
		}
	}
	t.Fatalf("no %s in %q", label, out)
	return ""
}

func TestConfigCommandsSurviveInvalidConfig(t *testing.T) {
	h := newHarness(t, "log_level: loud\n")

	_, err := h.run(t, "cache", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")

	out, err := h.run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, h.configPath+"\n", out)

	_, err = h.run(t, "config", "validate")
	require.Error(t, err)

	out, err = h.run(t, "doctor")
	require.Error(t, err)
	assert.Contains(t, out, "[ERROR] Config file")

	out, err = h.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "skip version")
}

func TestConfigSetAndGet(t *testing.T) {
	h := newHarness(t, "")

	_, err := h.run(t, "config", "set", "symbols.silence_phone", "SPN")
	require.NoError(t, err)

	out, err := h.run(t, "config", "get", "--key", "symbols.silence_phone")
	require.NoError(t, err)
	assert.Equal(t, "SPN\n", out)

	out, err = h.run(t, "config", "diff")
	require.NoError(t, err)
	assert.Contains(t, out, "SPN")

	_, err = h.run(t, "config", "set", "log_level", "loud")
	require.Error(t, err)
	out, err = h.run(t, "config", "get", "--key", "log_level")
	require.NoError(t, err)
	assert.NotContains(t, out, "loud")
}

func TestDoctorHealthyWithStandInTools(t *testing.T) {
	h := newHarness(t, "")

	out, err := h.run(t, "doctor")
	require.NoError(t, err, out)
	assert.Contains(t, out, "[OK] Graph tools")
	assert.Contains(t, out, "[OK] Grammar estimation")
}

func TestCompletionIgnoresInvalidConfig(t *testing.T) {
	h := newHarness(t, "log_level: loud\n")
	out, err := h.run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "bash completion")
}
