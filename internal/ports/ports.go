// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// The recipes in the application layer depend only on these interfaces; the
// infrastructure layer supplies the adapters (index-record store, mtime
// tracker, process runner, tool resolution, history database). Tests swap in
// stubs or real adapters over temporary directories.
package ports

import (
	"context"

	"github.com/doeshing/skip-go/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.skip/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// FingerprintStore persists, per cache directory, a mapping from a canonical
// parameter string to an attribute bag.
type FingerprintStore interface {
	// Lookup returns the recorded attributes for params (empty on a miss)
	// and a handle to commit through. Lookup never writes.
	Lookup(dir, params string) (domain.Attributes, domain.IndexHandle, error)
	// Reserve allocates the handle's record ahead of a build, keeping an
	// existing record for the same parameters.
	Reserve(handle domain.IndexHandle) error
	// Commit overwrites the record's attributes.
	Commit(handle domain.IndexHandle, attrs domain.Attributes) error
	// Entries lists the records of one cache directory.
	Entries(dir string) ([]domain.CacheEntry, error)
}

// DependencyTracker decides staleness from file modification times.
type DependencyTracker interface {
	Evaluate(pairs []domain.DependencyPair) (domain.Staleness, error)
	Invalidate(paths []string)
	Stamp(path string) (domain.Stamp, error)
}

// StageRunner executes an invocation, checking every process's exit status.
type StageRunner interface {
	Run(ctx context.Context, inv domain.Invocation) error
}

// ToolLocator resolves a logical tool name to an executable path.
type ToolLocator interface {
	Resolve(name string) (string, error)
}

// ToolInventory reports which tools cannot be resolved.
type ToolInventory interface {
	Missing(names []string) []string
}

// HistoryRepository records build attempts.
type HistoryRepository interface {
	Save(record domain.BuildRecord) error
	Records(limit int, stage string) ([]domain.BuildRecord, error)
	Clear() error
	Path() string
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
