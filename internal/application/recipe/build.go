package recipe

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/pkg/filesystem"
	"github.com/doeshing/skip-go/internal/ports"
)

// Build is the scratch state of one build attempt. Every file allocated
// through it is removed if the attempt fails.
type Build struct {
	Dir     string
	LogPath string

	tracker ports.DependencyTracker
	runner  ports.StageRunner
	created []string
}

// NewFile allocates a fresh file name in the stage directory.
func (b *Build) NewFile(prefix, suffix string) string {
	path := filesystem.RandomName(b.Dir, prefix, suffix)
	b.created = append(b.created, path)
	return path
}

// CopySource copies src into a fresh file in the stage directory and
// returns the copy. The copy keeps the source modification time, so it
// serves as the staleness baseline.
func (b *Build) CopySource(src, prefix, suffix string) (string, error) {
	if err := os.MkdirAll(b.Dir, domain.DirectoryPermissions); err != nil {
		return "", err
	}
	dst := b.NewFile(prefix, suffix)
	if err := filesystem.CopyFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// Stamp records the current whole-second modification time of path.
func (b *Build) Stamp(path string) (domain.Stamp, error) {
	return b.tracker.Stamp(path)
}

// Run executes inv through the stage runner.
func (b *Build) Run(ctx context.Context, inv domain.Invocation) error {
	return b.runner.Run(ctx, inv)
}

// Invocation starts an invocation logging to this build's log file.
func (b *Build) Invocation(name string, stages ...domain.Stage) domain.Invocation {
	return domain.Invocation{Name: name, LogPath: b.LogPath, Stages: stages}
}

func (b *Build) discard() {
	filesystem.RemoveQuietly(b.created...)
}

// WriteLines writes a text file through a buffered writer.
func WriteLines(path string, fn func(w *bufio.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, domain.FilePermissions)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ScanLines calls fn for every line of r.
func ScanLines(r io.Reader, fn func(line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ScanFile calls fn for every line of the file at path.
func ScanFile(path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ScanLines(f, fn)
}

// StageDir joins a context directory with a stage directory name.
func StageDir(contextDir, stage string) string {
	return filepath.Join(contextDir, stage)
}
