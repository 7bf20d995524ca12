package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Typed errors below unwrap to these
// so callers can use errors.Is without caring about the details.
var (
	ErrExternalTool         = errors.New("external tool failed")
	ErrMissingDependency    = errors.New("missing dependency")
	ErrCacheCorruption      = errors.New("cache index corrupt")
	ErrUnsupportedParameter = errors.New("unsupported parameter")
)

// ToolFailureError reports a process in a stage that exited non-zero.
type ToolFailureError struct {
	Stage    string
	Tool     string
	ExitCode int
	LogPath  string
}

func (e *ToolFailureError) Error() string {
	return fmt.Sprintf("%s: %s exited with status %d (log file: %s)", e.Stage, e.Tool, e.ExitCode, e.LogPath)
}

func (e *ToolFailureError) Unwrap() error { return ErrExternalTool }

// MissingDependencyError reports a source file that does not exist.
type MissingDependencyError struct {
	Path string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing dependency: %s", e.Path)
}

func (e *MissingDependencyError) Unwrap() error { return ErrMissingDependency }

// UnsupportedParameterError rejects a parameter combination before any
// process is spawned.
type UnsupportedParameterError struct {
	Name   string
	Value  interface{}
	Reason string
}

func (e *UnsupportedParameterError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unsupported %s: %v", e.Name, e.Value)
	}
	return fmt.Sprintf("unsupported %s %v: %s", e.Name, e.Value, e.Reason)
}

func (e *UnsupportedParameterError) Unwrap() error { return ErrUnsupportedParameter }

// LogPathOf extracts the stage log path from a tool failure, if there is one.
func LogPathOf(err error) (string, bool) {
	var tf *ToolFailureError
	if errors.As(err, &tf) {
		return tf.LogPath, true
	}
	return "", false
}
