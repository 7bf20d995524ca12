package recipe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/infrastructure/fingerprint"
	"github.com/doeshing/skip-go/internal/infrastructure/staleness"
	"github.com/doeshing/skip-go/internal/pkg/canonical"
)

// fakeRunner writes a marker into every produced file, or fails.
type fakeRunner struct {
	calls int
	err   error
}

func (r *fakeRunner) Run(_ context.Context, inv domain.Invocation) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	for _, st := range inv.Stages {
		for _, p := range st.Produces {
			if err := os.WriteFile(p, []byte(inv.Name+"\n"), 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}

type memHistory struct {
	records []domain.BuildRecord
}

func (h *memHistory) Save(r domain.BuildRecord) error {
	h.records = append(h.records, r)
	return nil
}
func (h *memHistory) Records(int, string) ([]domain.BuildRecord, error) { return h.records, nil }
func (h *memHistory) Path() string                                      { return "" }

func (h *memHistory) Clear() error {
	h.records = nil
	return nil
}

type copyArtifact struct {
	Copy   string
	Output string
}

func (c copyArtifact) Attributes() domain.Attributes {
	a := domain.NewAttributes()
	a.SetPath("copy", c.Copy)
	a.SetPath("filename", c.Output)
	return a
}

type fixture struct {
	engine  *Engine
	runner  *fakeRunner
	history *memHistory
	dir     string
	source  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	source := filepath.Join(root, "source.txt")
	require.NoError(t, os.WriteFile(source, []byte("v1\n"), 0o644))
	setMTime(t, source, time.Now().Add(-time.Hour))

	f := &fixture{
		runner:  &fakeRunner{},
		history: &memHistory{},
		dir:     filepath.Join(root, "ctx", "copies"),
		source:  source,
	}
	f.engine = NewEngine(fingerprint.NewStore(nil), staleness.NewTracker(), f.runner, f.history, nil)
	return f
}

func (f *fixture) ensure(label string) (copyArtifact, Outcome, error) {
	attrs, outcome, err := f.engine.Ensure(context.Background(), Request{
		Dir:    f.dir,
		Params: canonical.New("Copy").Path("source", f.source).Str("label", label),
		Dependencies: func(prev domain.Attributes) []domain.DependencyPair {
			return []domain.DependencyPair{domain.PathPair(f.source, prev.Path("copy"))}
		},
		Build: func(ctx context.Context, b *Build) (domain.Artifact, error) {
			var art copyArtifact
			var err error
			if art.Copy, err = b.CopySource(f.source, "src-", ".txt"); err != nil {
				return nil, err
			}
			art.Output = b.NewFile("out-", ".txt")
			err = b.Run(ctx, b.Invocation("copy", domain.Stage{
				Name:     "copy",
				Chain:    []domain.Process{domain.Cmd("cp")},
				Produces: []string{art.Output},
			}))
			if err != nil {
				return nil, err
			}
			return art, nil
		},
	})
	return copyArtifact{Copy: attrs.Path("copy"), Output: attrs.Path("filename")}, outcome, err
}

func setMTime(t *testing.T, path string, when time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, when, when))
}

func TestEnsureBuildsOnceThenHits(t *testing.T) {
	f := newFixture(t)

	first, outcome, err := f.ensure("a")
	require.NoError(t, err)
	assert.False(t, outcome.CacheHit)
	assert.FileExists(t, first.Copy)
	assert.FileExists(t, first.Output)
	assert.FileExists(t, outcome.IndexFile)

	second, outcome, err := f.ensure("a")
	require.NoError(t, err)
	assert.True(t, outcome.CacheHit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.runner.calls)

	require.Len(t, f.history.records, 2)
	assert.False(t, f.history.records[0].CacheHit)
	assert.True(t, f.history.records[1].CacheHit)
	assert.Equal(t, "copies", f.history.records[1].Stage)
	assert.Equal(t, "ctx", f.history.records[1].Context)
}

func TestEnsureRebuildsWhenSourceChanges(t *testing.T) {
	f := newFixture(t)
	first, _, err := f.ensure("a")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(f.source, []byte("v2\n"), 0o644))
	setMTime(t, f.source, time.Now().Add(time.Minute))

	second, outcome, err := f.ensure("a")
	require.NoError(t, err)
	assert.False(t, outcome.CacheHit)
	assert.NotEqual(t, first.Output, second.Output)
	assert.Equal(t, 2, f.runner.calls)

	assert.NoFileExists(t, first.Copy)
	assert.NoFileExists(t, first.Output)
	data, err := os.ReadFile(second.Copy)
	require.NoError(t, err)
	assert.Equal(t, "v2\n", string(data))

	_, outcome, err = f.ensure("a")
	require.NoError(t, err)
	assert.True(t, outcome.CacheHit)
}

func TestEnsureKeepsEntriesPerParameterSet(t *testing.T) {
	f := newFixture(t)
	a, outA, err := f.ensure("a")
	require.NoError(t, err)
	b, outB, err := f.ensure("b")
	require.NoError(t, err)

	assert.NotEqual(t, outA.IndexFile, outB.IndexFile)
	assert.NotEqual(t, a.Output, b.Output)

	_, outA, err = f.ensure("a")
	require.NoError(t, err)
	assert.True(t, outA.CacheHit)
	_, outB, err = f.ensure("b")
	require.NoError(t, err)
	assert.True(t, outB.CacheHit)
	assert.Equal(t, 2, f.runner.calls)
}

func TestEnsureFailureKeepsPreviousEntry(t *testing.T) {
	f := newFixture(t)
	first, _, err := f.ensure("a")
	require.NoError(t, err)

	setMTime(t, f.source, time.Now().Add(time.Minute))
	f.runner.err = &domain.ToolFailureError{Stage: "copy", Tool: "cp", ExitCode: 1, LogPath: "copy.log"}

	_, outcome, err := f.ensure("a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExternalTool))
	assert.FileExists(t, first.Copy)
	assert.FileExists(t, first.Output)

	matches, err := filepath.Glob(filepath.Join(f.dir, "src-*"))
	require.NoError(t, err)
	assert.Equal(t, []string{first.Copy}, matches)

	data, err := os.ReadFile(outcome.IndexFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), filepath.Base(first.Output))

	last := f.history.records[len(f.history.records)-1]
	assert.False(t, last.Success)
	assert.Equal(t, "copy.log", last.LogPath)
}

func TestEnsureMissingSourceFailsWithoutBuilding(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.source))

	_, _, err := f.ensure("a")
	var missing *domain.MissingDependencyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, f.source, missing.Path)
	assert.Zero(t, f.runner.calls)
}

func TestSuperseded(t *testing.T) {
	prev := domain.NewAttributes()
	prev.SetPath("a", "/c/a1")
	prev.SetPath("b", "/c/shared")
	next := domain.NewAttributes()
	next.SetPath("a", "/c/a2")
	next.SetPath("b", "/c/shared")

	got := superseded(prev, next, []string{"/c/a1", "/c/extra"})
	assert.Equal(t, []string{"/c/a1", "/c/extra"}, got)
}

func TestBuildDiscardRemovesAllocatedFiles(t *testing.T) {
	dir := t.TempDir()
	b := &Build{Dir: dir}
	path := b.NewFile("x-", ".txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	b.discard()
	assert.NoFileExists(t, path)
}
