package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/pkg/filesystem"
	"github.com/doeshing/skip-go/internal/ports"
)

// ErrContextNotFound is returned for operations on a context that was never
// opened.
var ErrContextNotFound = errors.New("context not found")

// ErrEntryNotFound is returned when no index record matches a fingerprint.
var ErrEntryNotFound = errors.New("cache entry not found")

// Info summarises one context directory.
type Info struct {
	Name    string
	Dir     string
	Entries int
	Size    int64
	ModTime time.Time
}

// Manager opens, lists and prunes contexts under the contexts directory.
type Manager struct {
	root    string
	store   ports.FingerprintStore
	recipes Recipes
}

// NewManager returns a Manager rooted at contextsDir.
func NewManager(contextsDir string, store ports.FingerprintStore, recipes Recipes) *Manager {
	return &Manager{root: contextsDir, store: store, recipes: recipes}
}

// Root returns the contexts directory.
func (m *Manager) Root() string {
	return m.root
}

// Dir returns the directory of the named context.
func (m *Manager) Dir(name string) string {
	return filepath.Join(m.root, name)
}

// Open returns the named context, creating its directory on first use.
func (m *Manager) Open(name string) (*Context, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	dir := m.Dir(name)
	if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create context %s: %w", name, err)
	}
	return &Context{Name: name, Dir: dir, recipes: m.recipes}, nil
}

// List describes every context, ordered by name.
func (m *Manager) List() ([]Info, error) {
	dirs, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var infos []Info
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		info, err := m.describe(d.Name())
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (m *Manager) describe(name string) (Info, error) {
	dir := filepath.Join(m.root, name)
	stat, err := os.Stat(dir)
	if err != nil {
		return Info{}, err
	}
	entries, err := m.Entries(name)
	if err != nil {
		return Info{}, err
	}
	size, err := filesystem.DirSize(dir)
	if err != nil {
		return Info{}, err
	}
	return Info{Name: name, Dir: dir, Entries: len(entries), Size: size, ModTime: stat.ModTime()}, nil
}

// Remove deletes a context and everything built in it.
func (m *Manager) Remove(name string) error {
	dir, err := m.existing(name)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

// Entries lists the index records of every stage of a context.
func (m *Manager) Entries(name string) ([]domain.CacheEntry, error) {
	dir, err := m.existing(name)
	if err != nil {
		return nil, err
	}
	var all []domain.CacheEntry
	for _, stage := range domain.StageDirs {
		entries, err := m.store.Entries(filepath.Join(dir, stage))
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", name, stage, err)
		}
		all = append(all, entries...)
	}
	return all, nil
}

// Clear removes the cached artifacts of one stage, or of every stage when
// stage is empty, and returns how many entries were dropped.
func (m *Manager) Clear(name, stage string) (int, error) {
	dir, err := m.existing(name)
	if err != nil {
		return 0, err
	}
	stages := domain.StageDirs
	if stage != "" {
		if !knownStage(stage) {
			return 0, &domain.UnsupportedParameterError{Name: "stage", Value: stage, Reason: "expected one of " + strings.Join(domain.StageDirs, ", ")}
		}
		stages = []string{stage}
	}
	removed := 0
	for _, s := range stages {
		stageDir := filepath.Join(dir, s)
		entries, err := m.store.Entries(stageDir)
		if err != nil {
			return removed, err
		}
		if err := os.RemoveAll(stageDir); err != nil {
			return removed, err
		}
		removed += len(entries)
	}
	return removed, nil
}

// RemoveEntry drops the record whose fingerprint starts with prefix,
// together with the files it owns inside the stage directory. Registered
// files outside the context are never touched.
func (m *Manager) RemoveEntry(name, prefix string) (domain.CacheEntry, error) {
	if prefix == "" {
		return domain.CacheEntry{}, ErrEntryNotFound
	}
	entries, err := m.Entries(name)
	if err != nil {
		return domain.CacheEntry{}, err
	}
	var match []domain.CacheEntry
	for _, e := range entries {
		if strings.HasPrefix(e.Fingerprint, prefix) {
			match = append(match, e)
		}
	}
	switch len(match) {
	case 0:
		return domain.CacheEntry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, prefix)
	case 1:
	default:
		return domain.CacheEntry{}, fmt.Errorf("fingerprint prefix %s is ambiguous (%d entries)", prefix, len(match))
	}

	entry := match[0]
	stageDir := filepath.Dir(entry.IndexFile)
	var owned []string
	for _, f := range entry.Attributes.Files() {
		if filepath.Dir(f) == stageDir {
			owned = append(owned, f)
		}
	}
	filesystem.RemoveQuietly(owned...)
	if err := os.Remove(entry.IndexFile); err != nil && !os.IsNotExist(err) {
		return entry, err
	}
	return entry, nil
}

// Size returns the bytes used by a context.
func (m *Manager) Size(name string) (int64, error) {
	dir, err := m.existing(name)
	if err != nil {
		return 0, err
	}
	return filesystem.DirSize(dir)
}

func (m *Manager) existing(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	dir := filepath.Join(m.root, name)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrContextNotFound, name)
		}
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrContextNotFound, name)
	}
	return dir, nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return &domain.UnsupportedParameterError{Name: "context name", Value: name, Reason: "must be a single path element"}
	}
	return nil
}

func knownStage(stage string) bool {
	for _, s := range domain.StageDirs {
		if s == stage {
			return true
		}
	}
	return false
}
