package domain

import "time"

// BuildRecord captures one recipe invocation for the history store.
type BuildRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Context     string    `json:"context"`
	Stage       string    `json:"stage"`
	Fingerprint string    `json:"fingerprint"`
	CacheHit    bool      `json:"cache_hit"`
	Success     bool      `json:"success"`
	DurationMS  int64     `json:"duration_ms"`
	LogPath     string    `json:"log_path,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// HistoryStats aggregates build records per stage.
type HistoryStats struct {
	Stage       string
	Builds      int
	CacheHits   int
	Failures    int
	TotalMS     int64
	LastBuildAt time.Time
}

// HitRate is the share of requests served from the cache.
func (s HistoryStats) HitRate() float64 {
	if s.Builds == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.Builds)
}
