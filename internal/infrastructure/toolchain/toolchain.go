// Package toolchain resolves logical tool names (fstcompile, ngram-count,
// gmm-decode-faster, ...) to executables from the Kaldi, OpenFST and SRILM
// installations named in the configuration.
package toolchain

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"

	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/pkg/filesystem"
	"github.com/doeshing/skip-go/internal/ports"
)

// ErrToolNotFound is returned when no search location provides a tool.
var ErrToolNotFound = errors.New("tool not found")

// kaldiBinDirs are searched under <kaldi_dir>.
var kaldiBinDirs = []string{
	"src/fstbin",
	"src/bin",
	"src/gmmbin",
	"src/featbin",
	"src/latbin",
	"src/lmbin",
	"tools/openfst/bin",
}

// RequiredTools lists every tool a full build can spawn.
var RequiredTools = []string{
	"fstcompile", "fstaddselfloops", "fstarcsort", "fstprint", "fstrmepsilon",
	"fsttablecompose", "fstdeterminizestar", "fstminimizeencoded", "fstcomposecontext",
	"fstrmsymbols", "fstrmepslocal", "make-h-transducer", "add-self-loops",
	"ngram-count", "arpa2fst",
	"compute-mfcc-feats", "compute-cmvn-stats", "apply-cmvn", "add-deltas",
	"gmm-decode-faster", "compile-train-graphs", "gmm-align-compiled",
	"ali-to-phones", "phones-to-prons", "prons-to-word-ali",
}

// Locator implements ports.ToolLocator.
type Locator struct {
	overrides map[string]string
	dirs      []string

	mu       sync.Mutex
	resolved map[string]string
}

// NewLocator builds the search order from the configuration: explicit tool
// overrides, tool_dirs, the Kaldi tree, the SRILM tree, then PATH.
func NewLocator(cfg domain.Config) *Locator {
	l := &Locator{
		overrides: map[string]string{},
		resolved:  map[string]string{},
	}
	for name, path := range cfg.Tools {
		l.overrides[name] = filesystem.ExpandHome(path)
	}
	for _, dir := range cfg.ToolDirs {
		l.dirs = append(l.dirs, filesystem.ExpandHome(dir))
	}
	if cfg.KaldiDir != "" {
		root := filesystem.ExpandHome(cfg.KaldiDir)
		for _, sub := range kaldiBinDirs {
			l.dirs = append(l.dirs, filepath.Join(root, sub))
		}
	}
	if cfg.SRILMDir != "" {
		bin := filepath.Join(filesystem.ExpandHome(cfg.SRILMDir), "bin")
		l.dirs = append(l.dirs, bin)
		if machine, err := filepath.Glob(filepath.Join(bin, "*")); err == nil {
			sort.Strings(machine)
			for _, m := range machine {
				if info, err := os.Stat(m); err == nil && info.IsDir() {
					l.dirs = append(l.dirs, m)
				}
			}
		}
	}
	return l
}

// Dirs returns the directories searched before PATH.
func (l *Locator) Dirs() []string {
	return append([]string(nil), l.dirs...)
}

// Resolve returns an executable path for name.
func (l *Locator) Resolve(name string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if path, ok := l.resolved[name]; ok {
		return path, nil
	}
	path, err := l.lookup(name)
	if err != nil {
		return "", err
	}
	l.resolved[name] = path
	return path, nil
}

func (l *Locator) lookup(name string) (string, error) {
	if override, ok := l.overrides[name]; ok {
		if isExecutable(override) {
			return override, nil
		}
		if path, err := exec.LookPath(override); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("%w: %s (configured as %s)", ErrToolNotFound, name, override)
	}
	for _, dir := range l.dirs {
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
}

// Missing reports which of names cannot be resolved.
func (l *Locator) Missing(names []string) []string {
	var missing []string
	for _, name := range names {
		if _, err := l.Resolve(name); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

var _ ports.ToolLocator = (*Locator)(nil)
var _ ports.ToolInventory = (*Locator)(nil)
