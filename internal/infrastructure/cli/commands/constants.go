package commands

// CLI-specific constants
const (
	// DefaultEditorCommand is the default editor command
	DefaultEditorCommand = "vi"
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
	// MaxHistoryAnalysisRecords bounds the records read by 'history stats'
	MaxHistoryAnalysisRecords = 10000
	// TimestampFormat is used for every timestamp printed by the CLI
	TimestampFormat = "2006-01-02 15:04:05"
)

// AnnotationConfigOnly marks commands that only need the config loader and
// must keep working when the configuration is invalid.
const AnnotationConfigOnly = "skip.config-only"

// Error messages
const (
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrHistoryStoreUnavailable  = "history store unavailable"
	ErrWorkspaceUnavailable     = "workspace unavailable"
	ErrKeyRequired              = "--key is required"
)

// Success messages
const (
	MsgConfigurationValid       = "Configuration valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgNoHistoryRecorded        = "No history recorded yet."
	MsgNoCacheEntries           = "No cache entries."
	MsgNoContexts               = "No contexts."
	MsgInitCancelled            = "Init cancelled."
)

// configOnly returns the annotations of a config-only command.
func configOnly() map[string]string {
	return map[string]string{AnnotationConfigOnly: "true"}
}
