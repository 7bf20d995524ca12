// Package recipe drives the cache protocol shared by every build recipe:
// look up the index record for the canonical parameters, evaluate the
// recorded baselines against the current sources, and on a miss build into
// fresh file names, commit, and only then drop the previous artifact files.
package recipe

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/pkg/canonical"
	"github.com/doeshing/skip-go/internal/pkg/filesystem"
	"github.com/doeshing/skip-go/internal/ports"
)

// Engine bundles the ports a recipe needs.
type Engine struct {
	store   ports.FingerprintStore
	tracker ports.DependencyTracker
	runner  ports.StageRunner
	history ports.HistoryRepository
	logger  ports.Logger
	now     func() time.Time
}

// NewEngine wires an Engine. history may be nil.
func NewEngine(store ports.FingerprintStore, tracker ports.DependencyTracker, runner ports.StageRunner, history ports.HistoryRepository, logger ports.Logger) *Engine {
	return &Engine{
		store:   store,
		tracker: tracker,
		runner:  runner,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// Request describes one cached build.
type Request struct {
	// Dir is the stage directory, e.g. <context>/L_graphs.
	Dir string
	// Params is the canonical parameter set; it keys the index record.
	Params *canonical.Params
	// Dependencies derives the dependency pairs from the attributes of the
	// previous build (empty on a first build).
	Dependencies func(prev domain.Attributes) []domain.DependencyPair
	// Build produces the new artifact.
	Build func(ctx context.Context, b *Build) (domain.Artifact, error)
}

// Outcome reports how a request was served.
type Outcome struct {
	CacheHit    bool
	Fingerprint string
	IndexFile   string
	LogPath     string
}

// Ensure returns the up-to-date attributes for req, building them if the
// cached entry is missing or stale.
func (e *Engine) Ensure(ctx context.Context, req Request) (domain.Attributes, Outcome, error) {
	start := e.now()
	params := req.Params.String()
	record := domain.BuildRecord{
		Timestamp:   start,
		Context:     filepath.Base(filepath.Dir(req.Dir)),
		Stage:       filepath.Base(req.Dir),
		Fingerprint: canonical.Fingerprint(params),
	}

	prev, handle, err := e.store.Lookup(req.Dir, params)
	if err != nil {
		return domain.Attributes{}, Outcome{}, e.fail(record, start, err)
	}
	outcome := Outcome{Fingerprint: handle.Fingerprint, IndexFile: handle.Path}

	staleness, err := e.tracker.Evaluate(req.Dependencies(prev))
	if err != nil {
		return domain.Attributes{}, outcome, e.fail(record, start, err)
	}
	if !staleness.Stale && !prev.Empty() {
		outcome.CacheHit = true
		record.CacheHit = true
		record.Success = true
		e.save(record, start)
		e.debug("cache hit", record)
		return prev, outcome, nil
	}
	if err := e.store.Reserve(handle); err != nil {
		return domain.Attributes{}, outcome, e.fail(record, start, err)
	}

	b := &Build{
		Dir:     req.Dir,
		LogPath: filesystem.RandomName(req.Dir, "", domain.LogSuffix),
		tracker: e.tracker,
		runner:  e.runner,
	}
	outcome.LogPath = b.LogPath
	record.LogPath = b.LogPath

	artifact, err := req.Build(ctx, b)
	if err != nil {
		b.discard()
		return domain.Attributes{}, outcome, e.fail(record, start, err)
	}
	attrs := artifact.Attributes()
	if err := e.store.Commit(handle, attrs); err != nil {
		b.discard()
		return domain.Attributes{}, outcome, e.fail(record, start, err)
	}

	// The previous files are only dropped once the new entry is committed.
	e.tracker.Invalidate(superseded(prev, attrs, staleness.Invalidate))

	record.Success = true
	e.save(record, start)
	e.debug("artifact built", record)
	return attrs, outcome, nil
}

// Stamp exposes the tracker's whole-second modification time.
func (e *Engine) Stamp(path string) (domain.Stamp, error) {
	return e.tracker.Stamp(path)
}

func (e *Engine) fail(record domain.BuildRecord, start time.Time, err error) error {
	record.Success = false
	record.Error = err.Error()
	if path, ok := domain.LogPathOf(err); ok {
		record.LogPath = path
	}
	e.save(record, start)
	if e.logger != nil {
		fields := map[string]interface{}{"stage": record.Stage, "context": record.Context}
		if record.LogPath != "" && errors.Is(err, domain.ErrExternalTool) {
			fields["log"] = record.LogPath
		}
		e.logger.Error("build failed", err, fields)
	}
	return err
}

func (e *Engine) save(record domain.BuildRecord, start time.Time) {
	if e.history == nil {
		return
	}
	record.DurationMS = e.now().Sub(start).Milliseconds()
	if err := e.history.Save(record); err != nil && e.logger != nil {
		e.logger.Warn("failed to record build history", map[string]interface{}{"error": err.Error()})
	}
}

func (e *Engine) debug(msg string, record domain.BuildRecord) {
	if e.logger == nil {
		return
	}
	e.logger.Debug(msg, map[string]interface{}{
		"context":     record.Context,
		"stage":       record.Stage,
		"fingerprint": record.Fingerprint,
	})
}

// superseded lists files of the previous entry that the new entry no
// longer references.
func superseded(prev, next domain.Attributes, baselines []string) []string {
	keep := map[string]bool{}
	for _, f := range next.Files() {
		keep[f] = true
	}
	var out []string
	seen := map[string]bool{}
	for _, f := range append(prev.Files(), baselines...) {
		if f == "" || keep[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
