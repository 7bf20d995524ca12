package domain

import "time"

// IndexHandle identifies the index record a lookup resolved to. Commit
// writes through it.
type IndexHandle struct {
	Path        string
	Params      string
	Fingerprint string
}

// CacheEntry describes one index record for listing.
type CacheEntry struct {
	Stage       string
	IndexFile   string
	Fingerprint string
	Params      string
	Attributes  Attributes
	ModTime     time.Time
}

// Populated reports whether the entry has been committed at least once.
func (c CacheEntry) Populated() bool {
	return !c.Attributes.Empty()
}

// DependencyPair relates a source file to the baseline it was last built
// from: either a copy of the source (BaselinePath) or its recorded
// modification time (BaselineStamp). BaselinePath wins when both are set.
type DependencyPair struct {
	Source        string
	BaselinePath  string
	BaselineStamp Stamp
}

// PathPair is a DependencyPair whose baseline is a file.
func PathPair(source, baseline string) DependencyPair {
	return DependencyPair{Source: source, BaselinePath: baseline}
}

// StampPair is a DependencyPair whose baseline is a recorded timestamp.
func StampPair(source string, baseline Stamp) DependencyPair {
	return DependencyPair{Source: source, BaselineStamp: baseline}
}

// Staleness is the outcome of evaluating a set of dependency pairs.
// Invalidate lists the baseline paths that belong to the stale entry.
type Staleness struct {
	Stale      bool
	Invalidate []string
}
