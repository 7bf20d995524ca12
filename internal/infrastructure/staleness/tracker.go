// Package staleness decides whether a cached artifact is out of date by
// comparing whole-second modification times of its sources with the
// baselines recorded at build time.
package staleness

import (
	"errors"
	"io/fs"
	"os"

	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/ports"
)

// Tracker implements ports.DependencyTracker on the local filesystem.
type Tracker struct{}

// NewTracker returns a Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Evaluate reports whether any pair is stale. Every source must exist; a
// missing source is a MissingDependencyError and nothing is invalidated.
//
// A pair is stale when its baseline is unset, its baseline file is gone,
// or floor(mtime(source)) > floor(baseline).
func (t *Tracker) Evaluate(pairs []domain.DependencyPair) (domain.Staleness, error) {
	var result domain.Staleness
	for _, pair := range pairs {
		if pair.Source == "" {
			result.Stale = true
			continue
		}
		srcTime, err := t.Stamp(pair.Source)
		if err != nil {
			return domain.Staleness{}, err
		}
		if result.Stale {
			continue
		}
		result.Stale = pairStale(pair, srcTime)
	}
	if result.Stale {
		result.Invalidate = baselines(pairs)
	}
	return result, nil
}

func pairStale(pair domain.DependencyPair, src domain.Stamp) bool {
	if pair.BaselinePath != "" {
		base, err := mtime(pair.BaselinePath)
		if err != nil {
			return true
		}
		return src.Unix > base
	}
	if !pair.BaselineStamp.Valid {
		return true
	}
	return src.Unix > pair.BaselineStamp.Unix
}

func baselines(pairs []domain.DependencyPair) []string {
	var out []string
	for _, pair := range pairs {
		if pair.BaselinePath != "" {
			out = append(out, pair.BaselinePath)
		}
	}
	return out
}

// Invalidate removes baseline files best-effort.
func (t *Tracker) Invalidate(paths []string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		_ = os.Remove(p)
	}
}

// Stamp returns the whole-second modification time of path.
func (t *Tracker) Stamp(path string) (domain.Stamp, error) {
	sec, err := mtime(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Stamp{}, &domain.MissingDependencyError{Path: path}
		}
		return domain.Stamp{}, err
	}
	return domain.StampOf(sec), nil
}

func mtime(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.ModTime().Unix(), nil
}

var _ ports.DependencyTracker = (*Tracker)(nil)
