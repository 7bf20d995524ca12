package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/ports"
)

// SQLiteStore persists build records in a SQLite database. When the
// database cannot be opened it falls back to a jsonl file next to it.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	fallback *FileStore
	mu       sync.Mutex
}

// NewSQLiteStore creates (or opens) the database at path.
func NewSQLiteStore(path string) *SQLiteStore {
	fallback := NewFileStore(strings.TrimSuffix(path, filepath.Ext(path)) + ".jsonl")
	_ = os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return &SQLiteStore{path: path, fallback: fallback}
	}
	store := &SQLiteStore{db: db, path: path, fallback: fallback}
	if err := store.init(); err != nil {
		_ = db.Close()
		return &SQLiteStore{path: path, fallback: fallback}
	}
	return store
}

func (s *SQLiteStore) init() error {
	if s.db == nil {
		return os.ErrInvalid
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT,
		context TEXT,
		stage TEXT,
		fingerprint TEXT,
		cache_hit INTEGER,
		success INTEGER,
		duration_ms INTEGER,
		log_path TEXT,
		error TEXT
	);`)
	return err
}

// Save inserts a new record.
func (s *SQLiteStore) Save(record domain.BuildRecord) error {
	if s.db == nil {
		return s.fallback.Save(record)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO builds
		(timestamp, context, stage, fingerprint, cache_hit, success, duration_ms, log_path, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.Context,
		record.Stage,
		record.Fingerprint,
		boolToInt(record.CacheHit),
		boolToInt(record.Success),
		record.DurationMS,
		record.LogPath,
		record.Error,
	)
	return err
}

// Records returns entries newest first, optionally limited and filtered by
// stage directory name.
func (s *SQLiteStore) Records(limit int, stage string) ([]domain.BuildRecord, error) {
	if s.db == nil {
		return s.fallback.Records(limit, stage)
	}
	builder := strings.Builder{}
	builder.WriteString("SELECT timestamp, context, stage, fingerprint, cache_hit, success, duration_ms, log_path, error FROM builds")
	var args []interface{}
	if stage != "" {
		builder.WriteString(" WHERE stage = ?")
		args = append(args, stage)
	}
	builder.WriteString(" ORDER BY id DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []domain.BuildRecord
	for rows.Next() {
		var rec domain.BuildRecord
		var ts string
		var hit, success int
		if err := rows.Scan(&ts, &rec.Context, &rec.Stage, &rec.Fingerprint, &hit, &success, &rec.DurationMS, &rec.LogPath, &rec.Error); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Timestamp = t
		}
		rec.CacheHit = hit == 1
		rec.Success = success == 1
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear deletes all records.
func (s *SQLiteStore) Clear() error {
	if s.db == nil {
		return s.fallback.Clear()
	}
	_, err := s.db.Exec("DELETE FROM builds")
	return err
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database path, or the fallback file when SQLite is
// unavailable.
func (s *SQLiteStore) Path() string {
	if s.db == nil {
		return s.fallback.Path()
	}
	return s.path
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.HistoryRepository = (*SQLiteStore)(nil)
