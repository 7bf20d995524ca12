// Package graph builds the decoding graph components: the lexicon
// transducer (L), the grammar acceptor (G) and their composition with the
// context and HMM transducers (HCLG).
package graph

import (
	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/domain"
)

// Service builds graphs inside a context directory.
type Service struct {
	engine  *recipe.Engine
	symbols domain.SymbolSettings
}

// NewService returns a graph Service using the given reserved symbols.
func NewService(engine *recipe.Engine, symbols domain.SymbolSettings) *Service {
	return &Service{engine: engine, symbols: symbols.WithSymbolDefaults()}
}
