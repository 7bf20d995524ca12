package pipeline

import (
	"os"

	"github.com/doeshing/skip-go/internal/domain"
)

// WithScratch runs fn with a fresh temporary directory under parent and
// removes the directory afterwards, whatever fn returns. An empty parent
// means the system temp dir.
func WithScratch(parent string, fn func(dir string) error) error {
	if parent != "" {
		if err := os.MkdirAll(parent, domain.DirectoryPermissions); err != nil {
			return err
		}
	}
	dir, err := os.MkdirTemp(parent, "skip-scratch-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	return fn(dir)
}
