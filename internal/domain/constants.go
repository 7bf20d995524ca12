package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// FilePermissions is the permission for cache files (rw-r--r--)
	FilePermissions = 0o644
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Index record constants
const (
	// IndexMagic is the first line of every index record.
	IndexMagic = "$skipidx"
	// IndexSuffix is the file extension of index records.
	IndexSuffix = ".idx"
	// LogSuffix is the file extension of stage logs.
	LogSuffix = ".log"
)

// Stage directory names under a context directory.
const (
	StageLexicon     = "L_graphs"
	StageGrammar     = "G_graphs"
	StageGrammarArpa = "G_graphs_arpa"
	StageDecodeGraph = "HCLG_graphs"
	StageFeatures    = "MfccFeats"
	StageHypotheses  = "hypotheses"
	StageAlignments  = "alignments"
)

// StageDirs lists every stage directory a context can hold.
var StageDirs = []string{
	StageLexicon,
	StageGrammar,
	StageGrammarArpa,
	StageDecodeGraph,
	StageFeatures,
	StageHypotheses,
	StageAlignments,
}

// Default symbol names.
const (
	DefaultEpsilon         = "<eps>"
	DefaultGrammarDisambig = "#0"
	DefaultSilencePhone    = "SIL"
	DefaultUnknownWord     = "<UNK>"
	DefaultSentenceStart   = "<s>"
	DefaultSentenceEnd     = "</s>"
	DefaultWordBoundLeft   = "#1"
	DefaultWordBoundRight  = "#2"
	DefaultDecodeOOVWord   = "<UNK>"
	DefaultDecodeOOVPhone  = "<UNK>"
)

// History constants
const (
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
