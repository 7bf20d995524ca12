package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/ports"
)

func sampleRecords() []domain.BuildRecord {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []domain.BuildRecord{
		{Timestamp: base, Context: "demo", Stage: domain.StageLexicon, Success: true, DurationMS: 120},
		{Timestamp: base.Add(time.Minute), Context: "demo", Stage: domain.StageLexicon, CacheHit: true, Success: true},
		{Timestamp: base.Add(2 * time.Minute), Context: "demo", Stage: domain.StageGrammar, Success: false, Error: "ngram-count exited with status 1"},
	}
}

func exerciseStore(t *testing.T, store ports.HistoryRepository) {
	t.Helper()
	for _, rec := range sampleRecords() {
		require.NoError(t, store.Save(rec))
	}

	all, err := store.Records(0, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, domain.StageGrammar, all[0].Stage, "newest first")
	assert.Equal(t, "ngram-count exited with status 1", all[0].Error)

	lex, err := store.Records(1, domain.StageLexicon)
	require.NoError(t, err)
	require.Len(t, lex, 1)
	assert.True(t, lex[0].CacheHit)

	require.NoError(t, store.Clear())
	all, err = store.Records(0, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileStore(t *testing.T) {
	exerciseStore(t, NewFileStore(filepath.Join(t.TempDir(), "history.jsonl")))
}

func TestSQLiteStore(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store)
}

func TestSummarize(t *testing.T) {
	stats := Summarize(sampleRecords())
	require.Len(t, stats, 2)

	assert.Equal(t, domain.StageGrammar, stats[0].Stage)
	assert.Equal(t, 1, stats[0].Failures)

	lex := stats[1]
	assert.Equal(t, domain.StageLexicon, lex.Stage)
	assert.Equal(t, 2, lex.Builds)
	assert.InDelta(t, 0.5, lex.HitRate(), 1e-9)
	assert.Equal(t, int64(120), lex.TotalMS)
}
