package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doeshing/skip-go/internal/domain"
)

type validator interface {
	Validate() error
}

func TestDefaultParamsAreValid(t *testing.T) {
	for name, p := range map[string]validator{
		"lexicon":      domain.DefaultLexiconParams(),
		"grammar":      domain.DefaultGrammarParams(),
		"decode graph": domain.DefaultDecodeGraphParams(),
		"features":     domain.DefaultFeatureParams(),
	} {
		assert.NoError(t, p.Validate(), name)
	}
	assert.True(t, domain.DefaultArpaParams().RemoveIllegal)
}

func TestParamsValidateRejects(t *testing.T) {
	grammar := domain.DefaultGrammarParams()
	grammar.Discount = domain.DiscountGoodTuring

	graph := domain.DefaultDecodeGraphParams()
	graph.CentralPosition = graph.ContextSize

	features := domain.DefaultFeatureParams()
	features.DeltaOrder = -1

	tests := []struct {
		name   string
		params validator
	}{
		{name: "interpolated good-turing", params: grammar},
		{name: "central position outside window", params: graph},
		{name: "negative delta order", params: features},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.params.Validate(), domain.ErrUnsupportedParameter)
		})
	}
}
