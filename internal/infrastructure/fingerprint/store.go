// Package fingerprint persists the index records that map a stage's
// canonical parameter string to the attributes of the artifact built from it.
//
// One record per file, named after a short hash of the canonical string:
//
//	$skipidx
//	<canonical params>
//	{"paths":{...},"stamps":{...}}
//
// A record with only the first two lines is a reserved but unpopulated entry.
package fingerprint

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/pkg/canonical"
	"github.com/doeshing/skip-go/internal/pkg/filesystem"
	"github.com/doeshing/skip-go/internal/ports"
)

// Store implements ports.FingerprintStore on plain files.
type Store struct {
	mu     sync.Mutex
	logger ports.Logger
}

// NewStore returns a Store. logger may be nil.
func NewStore(logger ports.Logger) *Store {
	return &Store{logger: logger}
}

// record is the parsed form of an index file.
type record struct {
	params string
	attrs  domain.Attributes
}

// Lookup returns the attributes recorded for params in dir. A missing,
// corrupt or mismatched record is a miss and yields empty attributes.
// Lookup never writes; see Reserve.
func (s *Store) Lookup(dir, params string) (domain.Attributes, domain.IndexHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fp := canonical.Fingerprint(params)
	handle := domain.IndexHandle{
		Path:        filepath.Join(dir, fp+domain.IndexSuffix),
		Params:      params,
		Fingerprint: fp,
	}

	rec, err := readRecord(handle.Path)
	switch {
	case err == nil && rec.params == params:
		return rec.attrs, handle, nil
	case err == nil:
		s.warn("index record belongs to different parameters", handle.Path, nil)
	case os.IsNotExist(err):
	default:
		s.warn("index record unreadable, treating as miss", handle.Path, err)
	}

	return domain.NewAttributes(), handle, nil
}

// Reserve creates the handle's directory and, unless a record for the same
// parameters is already there, writes a fresh two-line record.
func (s *Store) Reserve(handle domain.IndexHandle) error {
	if handle.Path == "" {
		return fmt.Errorf("reserve: empty index handle")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(handle.Path), domain.DirectoryPermissions); err != nil {
		return err
	}
	if rec, err := readRecord(handle.Path); err == nil && rec.params == handle.Params {
		return nil
	}
	return writeRecord(handle.Path, handle.Params, nil)
}

// Commit replaces the record's attributes.
func (s *Store) Commit(handle domain.IndexHandle, attrs domain.Attributes) error {
	if handle.Path == "" {
		return fmt.Errorf("commit: empty index handle")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeRecord(handle.Path, handle.Params, &attrs)
}

// Entries lists every readable record in dir, ordered by file name.
// Corrupt records are reported with a warning and skipped.
func (s *Store) Entries(dir string) ([]domain.CacheEntry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	var entries []domain.CacheEntry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), domain.IndexSuffix) {
			continue
		}
		path := filepath.Join(dir, f.Name())
		rec, err := readRecord(path)
		if err != nil {
			s.warn("skipping unreadable index record", path, err)
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		entries = append(entries, domain.CacheEntry{
			Stage:       filepath.Base(dir),
			IndexFile:   path,
			Fingerprint: strings.TrimSuffix(f.Name(), domain.IndexSuffix),
			Params:      rec.params,
			Attributes:  rec.attrs,
			ModTime:     info.ModTime(),
		})
	}
	return entries, nil
}

func (s *Store) warn(msg, path string, err error) {
	if s.logger == nil {
		return
	}
	fields := map[string]interface{}{"index": path}
	if err != nil {
		fields["error"] = err.Error()
	}
	s.logger.Warn(msg, fields)
}

func readRecord(path string) (record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return record{}, err
	}
	return parseRecord(data)
}

func parseRecord(data []byte) (record, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return record{}, fmt.Errorf("%w: %v", domain.ErrCacheCorruption, err)
	}
	if len(lines) < 2 || lines[0] != domain.IndexMagic {
		return record{}, fmt.Errorf("%w: bad header", domain.ErrCacheCorruption)
	}

	rec := record{params: lines[1], attrs: domain.NewAttributes()}
	if len(lines) < 3 || strings.TrimSpace(lines[2]) == "" {
		return rec, nil
	}
	if err := json.Unmarshal([]byte(lines[2]), &rec.attrs); err != nil {
		return record{}, fmt.Errorf("%w: %v", domain.ErrCacheCorruption, err)
	}
	return rec, nil
}

func formatRecord(params string, attrs *domain.Attributes) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(domain.IndexMagic)
	buf.WriteByte('\n')
	buf.WriteString(params)
	buf.WriteByte('\n')
	if attrs != nil {
		data, err := json.Marshal(attrs)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func writeRecord(path, params string, attrs *domain.Attributes) error {
	data, err := formatRecord(params, attrs)
	if err != nil {
		return err
	}
	return filesystem.WriteFileAtomic(path, data, domain.FilePermissions)
}

var _ ports.FingerprintStore = (*Store)(nil)
