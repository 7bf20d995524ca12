package history

import (
	"sort"

	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/ports"
)

// Summarize groups records by stage, ordered by stage name.
func Summarize(records []domain.BuildRecord) []domain.HistoryStats {
	byStage := map[string]*domain.HistoryStats{}
	for _, rec := range records {
		st, ok := byStage[rec.Stage]
		if !ok {
			st = &domain.HistoryStats{Stage: rec.Stage}
			byStage[rec.Stage] = st
		}
		st.Builds++
		if rec.CacheHit {
			st.CacheHits++
		}
		if !rec.Success {
			st.Failures++
		}
		st.TotalMS += rec.DurationMS
		if rec.Timestamp.After(st.LastBuildAt) {
			st.LastBuildAt = rec.Timestamp
		}
	}
	out := make([]domain.HistoryStats, 0, len(byStage))
	for _, st := range byStage {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out
}

// Noop discards records. Used when history is disabled.
type Noop struct{}

func (Noop) Save(domain.BuildRecord) error { return nil }
func (Noop) Records(int, string) ([]domain.BuildRecord, error) { return nil, nil }
func (Noop) Clear() error { return nil }
func (Noop) Path() string { return "" }

var _ ports.HistoryRepository = Noop{}
