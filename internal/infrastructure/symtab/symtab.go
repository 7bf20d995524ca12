// Package symtab reads the text formats shared with the external tools:
// OpenFST symbol tables ("symbol id" per line) and pronunciation lexicons
// ("word phone phone ..." per line).
package symtab

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Table is a bidirectional symbol table.
type Table struct {
	bySymbol map[string]int
	byID     map[int]string
	order    []string
}

// Read parses the symbol table at path.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse reads a symbol table from r. Blank lines are skipped.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{bySymbol: map[string]int{}, byID: map[int]string{}}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected \"symbol id\", got %q", lineNo, scanner.Text())
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad id %q", lineNo, fields[1])
		}
		if _, dup := t.bySymbol[fields[0]]; !dup {
			t.order = append(t.order, fields[0])
		}
		t.bySymbol[fields[0]] = id
		t.byID[id] = fields[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// ID returns the id of sym.
func (t *Table) ID(sym string) (int, bool) {
	id, ok := t.bySymbol[sym]
	return id, ok
}

// Symbol returns the symbol for id.
func (t *Table) Symbol(id int) (string, bool) {
	sym, ok := t.byID[id]
	return sym, ok
}

// SymbolOr returns the symbol for a textual id, or fallback when the id
// is malformed or unknown.
func (t *Table) SymbolOr(id, fallback string) string {
	n, err := strconv.Atoi(id)
	if err != nil {
		return fallback
	}
	if sym, ok := t.byID[n]; ok {
		return sym
	}
	return fallback
}

// Symbols lists symbols in file order.
func (t *Table) Symbols() []string {
	return append([]string(nil), t.order...)
}

// Len is the number of distinct symbols.
func (t *Table) Len() int {
	return len(t.order)
}

// DisambigIDs returns the ids of disambiguation symbols (#0, #1, ...) in
// ascending order.
func (t *Table) DisambigIDs() []int {
	var ids []int
	for sym, id := range t.bySymbol {
		if IsDisambig(sym) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// IsDisambig reports whether sym has the form #<integer>.
func IsDisambig(sym string) bool {
	if len(sym) < 2 || sym[0] != '#' {
		return false
	}
	_, err := strconv.Atoi(sym[1:])
	return err == nil
}

// Entry is one lexicon pronunciation.
type Entry struct {
	Word   string
	Phones []string
}

// ReadLexicon parses a lexicon file.
func ReadLexicon(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := ParseLexicon(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// ParseLexicon reads "word phones..." lines. A word with no phones is an
// empty pronunciation.
func ParseLexicon(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		entries = append(entries, Entry{Word: fields[0], Phones: fields[1:]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ReadVocabulary returns the first column of a words table in file order.
func ReadVocabulary(path string) ([]string, error) {
	t, err := Read(path)
	if err != nil {
		return nil, err
	}
	return t.Symbols(), nil
}
