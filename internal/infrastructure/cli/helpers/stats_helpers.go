package helpers

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/doeshing/skip-go/internal/domain"
)

// CalculateSuccessRate calculates the success rate as a percentage
func CalculateSuccessRate(successfulCount int, executedCount int) float64 {
	if executedCount == 0 {
		return 0.0
	}
	return float64(successfulCount) / float64(executedCount) * 100.0
}

// FormatDuration renders a build duration in milliseconds.
func FormatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

// FormatSize renders a byte count for display.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.Bytes(uint64(bytes))
}

// FormatAge renders how long ago t was, or "never" for the zero time.
func FormatAge(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// TotalBuilds sums the builds and cache hits over all stages.
func TotalBuilds(stats []domain.HistoryStats) (requests, hits, failures int) {
	for _, s := range stats {
		requests += s.Builds
		hits += s.CacheHits
		failures += s.Failures
	}
	return requests, hits, failures
}
