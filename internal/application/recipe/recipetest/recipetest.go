// Package recipetest wires a recipe engine to stand-in tools written as
// small shell scripts, so recipes can be exercised without a Kaldi install.
package recipetest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/infrastructure/fingerprint"
	"github.com/doeshing/skip-go/internal/infrastructure/pipeline"
	"github.com/doeshing/skip-go/internal/infrastructure/staleness"
	"github.com/doeshing/skip-go/internal/infrastructure/toolchain"
)

// DefaultScript copies stdin to stdout, or into the file named by a final
// "ark:<path>" argument.
const DefaultScript = `for last; do :; done
case "$last" in
  ark:-|ark,t:-) cat ;;
  ark:*|ark,t:*) cat > "${last#*:}" ;;
  *) cat ;;
esac`

// Tools is a directory of stand-in executables that log every call.
type Tools struct {
	Dir     string
	callLog string
}

// NewTools writes a stand-in for every required tool. scripts replaces the
// body of individual tools; each body runs after the call is logged.
func NewTools(t *testing.T, scripts map[string]string) *Tools {
	t.Helper()
	root := t.TempDir()
	tools := &Tools{Dir: filepath.Join(root, "bin"), callLog: filepath.Join(root, "calls.log")}
	if err := os.MkdirAll(tools.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range toolchain.RequiredTools {
		body, ok := scripts[name]
		if !ok {
			body = DefaultScript
		}
		tools.Write(t, name, body)
	}
	for name, body := range scripts {
		if _, err := os.Stat(filepath.Join(tools.Dir, name)); os.IsNotExist(err) {
			tools.Write(t, name, body)
		}
	}
	return tools
}

// Write installs (or replaces) one stand-in tool.
func (tl *Tools) Write(t *testing.T, name, body string) {
	t.Helper()
	script := fmt.Sprintf("#!/bin/sh\necho \"%s $*\" >> %q\n%s\n", name, tl.callLog, body)
	if err := os.WriteFile(filepath.Join(tl.Dir, name), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
}

// Calls returns the logged invocations, one "tool args..." line each.
func (tl *Tools) Calls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(tl.callLog)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// Called reports whether tool ran at least once.
func (tl *Tools) Called(t *testing.T, tool string) bool {
	for _, call := range tl.Calls(t) {
		if call == tool || strings.HasPrefix(call, tool+" ") {
			return true
		}
	}
	return false
}

// Reset forgets the logged calls.
func (tl *Tools) Reset(t *testing.T) {
	t.Helper()
	if err := os.Remove(tl.callLog); err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
}

// Config returns a configuration that resolves tools from the stand-ins.
func (tl *Tools) Config() domain.Config {
	return domain.Config{ToolDirs: []string{tl.Dir}, Symbols: domain.DefaultSymbols()}
}

// NewEngine wires a recipe engine over the real store, tracker and runner
// with tools resolved from tl.
func NewEngine(tl *Tools) *recipe.Engine {
	runner := pipeline.NewRunner(toolchain.NewLocator(tl.Config()), nil)
	return recipe.NewEngine(fingerprint.NewStore(nil), staleness.NewTracker(), runner, nil, nil)
}
