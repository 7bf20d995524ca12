package fingerprint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/pkg/canonical"
)

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Debug(string, map[string]interface{}) {}
func (l *recordingLogger) Info(string, map[string]interface{})  {}
func (l *recordingLogger) Warn(msg string, _ map[string]interface{}) {
	l.warnings = append(l.warnings, msg)
}
func (l *recordingLogger) Error(string, error, map[string]interface{}) {}

func TestLookupMissWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), domain.StageLexicon)
	store := NewStore(nil)
	params := `L{addsilence=true, silenceprobability=0.5}`

	attrs, handle, err := store.Lookup(dir, params)
	require.NoError(t, err)
	assert.True(t, attrs.Empty())
	assert.Equal(t, filepath.Join(dir, canonical.Fingerprint(params)+".idx"), handle.Path)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestReserveWritesTwoLineRecord(t *testing.T) {
	dir := filepath.Join(t.TempDir(), domain.StageLexicon)
	store := NewStore(nil)
	params := `L{addsilence=true, silenceprobability=0.5}`

	_, handle, err := store.Lookup(dir, params)
	require.NoError(t, err)
	require.NoError(t, store.Reserve(handle))

	data, err := os.ReadFile(handle.Path)
	require.NoError(t, err)
	assert.Equal(t, "$skipidx\n"+params+"\n", string(data))
}

func TestReserveKeepsPopulatedRecord(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(nil)
	params := `G{order=3}`

	_, handle, err := store.Lookup(dir, params)
	require.NoError(t, err)
	require.NoError(t, store.Reserve(handle))
	graph := domain.GrammarGraph{Filename: "/ctx/G_graphs/a.fst"}
	require.NoError(t, store.Commit(handle, graph.Attributes()))

	require.NoError(t, store.Reserve(handle))
	attrs, _, err := store.Lookup(dir, params)
	require.NoError(t, err)
	assert.Equal(t, graph, domain.GrammarGraphFrom(attrs))
}

func TestCommitThenLookupHits(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(nil)
	params := `G{order=3}`

	_, handle, err := store.Lookup(dir, params)
	require.NoError(t, err)

	graph := domain.GrammarGraph{Filename: "/ctx/G_graphs/a.fst", WordsFile: "/ctx/G_graphs/b.txt"}
	require.NoError(t, store.Commit(handle, graph.Attributes()))

	attrs, again, err := store.Lookup(dir, params)
	require.NoError(t, err)
	assert.Equal(t, handle, again)
	assert.Equal(t, graph, domain.GrammarGraphFrom(attrs))
}

func TestStampsSurviveCommit(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(nil)

	_, handle, err := store.Lookup(dir, "HCLG{}")
	require.NoError(t, err)
	graph := domain.DecodeGraph{Filename: "/x/HCLG.fst", TreeTime: domain.StampOf(1700000000)}
	require.NoError(t, store.Commit(handle, graph.Attributes()))

	attrs, _, err := store.Lookup(dir, "HCLG{}")
	require.NoError(t, err)
	got := domain.DecodeGraphFrom(attrs)
	assert.Equal(t, domain.StampOf(1700000000), got.TreeTime)
	assert.False(t, got.ModelTime.Valid)
}

func TestCorruptRecordIsAMiss(t *testing.T) {
	dir := t.TempDir()
	log := &recordingLogger{}
	store := NewStore(log)
	params := `L{addsilence=false}`

	path := filepath.Join(dir, canonical.Fingerprint(params)+".idx")
	require.NoError(t, os.WriteFile(path, []byte("garbage\n"), 0o644))

	attrs, handle, err := store.Lookup(dir, params)
	require.NoError(t, err)
	assert.True(t, attrs.Empty())
	assert.Len(t, log.warnings, 1)

	require.NoError(t, store.Reserve(handle))
	data, err := os.ReadFile(handle.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "$skipidx\n"))
}

func TestMismatchedParamsIsAMiss(t *testing.T) {
	dir := t.TempDir()
	log := &recordingLogger{}
	store := NewStore(log)
	params := `L{addsilence=true}`

	path := filepath.Join(dir, canonical.Fingerprint(params)+".idx")
	body := "$skipidx\nL{other}\n{\"paths\":{\"filename\":\"/x\"}}\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	attrs, _, err := store.Lookup(dir, params)
	require.NoError(t, err)
	assert.True(t, attrs.Empty())
	assert.NotEmpty(t, log.warnings)
}

func TestBadAttributeLineIsAMiss(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(nil)
	params := `F{}`

	path := filepath.Join(dir, canonical.Fingerprint(params)+".idx")
	require.NoError(t, os.WriteFile(path, []byte("$skipidx\nF{}\n{not json\n"), 0o644))

	attrs, _, err := store.Lookup(dir, params)
	require.NoError(t, err)
	assert.True(t, attrs.Empty())
}

func TestEntriesListsRecords(t *testing.T) {
	dir := filepath.Join(t.TempDir(), domain.StageGrammar)
	store := NewStore(nil)

	_, h1, err := store.Lookup(dir, "G{a}")
	require.NoError(t, err)
	require.NoError(t, store.Reserve(h1))
	require.NoError(t, store.Commit(h1, domain.GrammarGraph{Filename: "/g.fst"}.Attributes()))
	_, h2, err := store.Lookup(dir, "G{b}")
	require.NoError(t, err)
	require.NoError(t, store.Reserve(h2))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "G.fst"), []byte("x"), 0o644))

	entries, err := store.Entries(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	populated := 0
	for _, e := range entries {
		assert.Equal(t, domain.StageGrammar, e.Stage)
		if e.Populated() {
			populated++
		}
	}
	assert.Equal(t, 1, populated)
}

func TestEntriesOfMissingDir(t *testing.T) {
	entries, err := NewStore(nil).Entries(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
