// Package canonical encodes a recipe's parameters as a deterministic string.
//
// The encoding is the cache key: two calls with semantically equal
// parameters must produce byte-identical strings, whatever order the values
// were added in. Keys are sorted, scalars are formatted with strconv and
// paths are made absolute and cleaned.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// fingerprintLen is the number of hex characters kept from the digest.
const fingerprintLen = 32

// Params accumulates named parameter values.
type Params struct {
	stage  string
	values map[string]string
}

// New starts a parameter set for a named stage.
func New(stage string) *Params {
	return &Params{stage: stage, values: map[string]string{}}
}

// Str adds a quoted string value.
func (p *Params) Str(key, value string) *Params {
	p.values[key] = strconv.Quote(value)
	return p
}

// Path adds a file path, resolved against the working directory so that
// relative and absolute spellings of the same file agree.
func (p *Params) Path(key, path string) *Params {
	if path == "" {
		p.values[key] = strconv.Quote("")
		return p
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	p.values[key] = strconv.Quote(filepath.Clean(path))
	return p
}

// Bool adds a boolean value.
func (p *Params) Bool(key string, value bool) *Params {
	p.values[key] = strconv.FormatBool(value)
	return p
}

// Int adds an integer value.
func (p *Params) Int(key string, value int) *Params {
	p.values[key] = strconv.Itoa(value)
	return p
}

// Float adds a float value in shortest round-trip form.
func (p *Params) Float(key string, value float64) *Params {
	if value == 0 {
		value = 0 // folds -0 into 0
	}
	p.values[key] = strconv.FormatFloat(value, 'g', -1, 64)
	return p
}

// String renders the canonical encoding: stage{k1=v1, k2=v2}.
func (p *Params) String() string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(p.stage)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p.values[k])
	}
	b.WriteByte('}')
	return b.String()
}

// Fingerprint hashes the canonical encoding.
func (p *Params) Fingerprint() string {
	return Fingerprint(p.String())
}

// Fingerprint hashes an already canonical string into the short hex key
// used for index record file names.
func Fingerprint(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}
