package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/pkg/filesystem"
)

// RegistryFile holds the artifacts registered in a context without a build.
const RegistryFile = "registered.yaml"

// Registry lists the artifacts registered in a context. Commands fall back
// to these paths when an input flag is omitted.
type Registry struct {
	LexiconFST     string `yaml:"lexicon_fst,omitempty"`
	PhonesFile     string `yaml:"phones,omitempty"`
	WordsFile      string `yaml:"words,omitempty"`
	GrammarFST     string `yaml:"grammar_fst,omitempty"`
	DecodeGraphFST string `yaml:"decode_graph_fst,omitempty"`
}

// Lexicon returns the registered lexicon transducer.
func (r Registry) Lexicon() domain.LexiconGraph {
	return domain.LexiconGraph{Filename: r.LexiconFST, PhonesFile: r.PhonesFile, WordsFile: r.WordsFile}
}

// Registry reads the context's registrations. A context with nothing
// registered yields an empty Registry.
func (c *Context) Registry() (Registry, error) {
	var r Registry
	data, err := os.ReadFile(c.registryPath())
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return r, err
	}
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Registry{}, fmt.Errorf("parse %s: %w", c.registryPath(), err)
	}
	return r, nil
}

// RegisterL records an existing lexicon transducer as the context default.
func (c *Context) RegisterL(fst, phonesFile, wordsFile string) (domain.LexiconGraph, error) {
	if err := absolute(&fst, &phonesFile, &wordsFile); err != nil {
		return domain.LexiconGraph{}, err
	}
	L := c.AddL(fst, phonesFile, wordsFile)
	return L, c.updateRegistry(func(r *Registry) {
		r.LexiconFST, r.PhonesFile, r.WordsFile = L.Filename, L.PhonesFile, L.WordsFile
	})
}

// RegisterG records an existing grammar acceptor as the context default.
func (c *Context) RegisterG(fst string) (domain.GrammarGraph, error) {
	if err := absolute(&fst); err != nil {
		return domain.GrammarGraph{}, err
	}
	G := c.AddG(fst)
	return G, c.updateRegistry(func(r *Registry) { r.GrammarFST = G.Filename })
}

// RegisterHCLG records an existing decoding graph as the context default.
func (c *Context) RegisterHCLG(fst string) (domain.DecodeGraph, error) {
	if err := absolute(&fst); err != nil {
		return domain.DecodeGraph{}, err
	}
	HCLG := c.AddHCLG(fst)
	return HCLG, c.updateRegistry(func(r *Registry) { r.DecodeGraphFST = HCLG.Filename })
}

func (c *Context) updateRegistry(set func(*Registry)) error {
	r, err := c.Registry()
	if err != nil {
		return err
	}
	set(&r)
	raw, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return filesystem.WriteFileAtomic(c.registryPath(), raw, domain.FilePermissions)
}

func (c *Context) registryPath() string {
	return filepath.Join(c.Dir, RegistryFile)
}

// absolute rewrites each non-empty path relative to the working directory.
func absolute(paths ...*string) error {
	for _, p := range paths {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return err
		}
		*p = abs
	}
	return nil
}
