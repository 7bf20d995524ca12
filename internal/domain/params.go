package domain

// LexiconParams configures the lexicon (L) recipe.
type LexiconParams struct {
	AddSilence         bool
	SilenceProbability float64
}

// DefaultLexiconParams matches the historical defaults.
func DefaultLexiconParams() LexiconParams {
	return LexiconParams{AddSilence: true, SilenceProbability: 0.5}
}

// Validate rejects probabilities whose costs would be infinite.
func (p LexiconParams) Validate() error {
	if !p.AddSilence {
		return nil
	}
	if p.SilenceProbability <= 0 || p.SilenceProbability >= 1 {
		return &UnsupportedParameterError{
			Name:   "silenceprobability",
			Value:  p.SilenceProbability,
			Reason: "must be strictly between 0 and 1 when silence is added",
		}
	}
	return nil
}

// Discounting methods understood by the n-gram estimator.
const (
	DiscountKneserNey  = "kn"
	DiscountWittenBell = "wb"
	DiscountGoodTuring = "gt"
)

// GrammarParams configures grammar (G) estimation from transcripts.
type GrammarParams struct {
	Interpolate   bool
	Order         int
	Discount      string
	KeepUnknowns  bool
	RemoveIllegal bool
	LimitVocab    bool
}

// DefaultGrammarParams is an interpolated Kneser-Ney trigram.
func DefaultGrammarParams() GrammarParams {
	return GrammarParams{
		Interpolate:   true,
		Order:         3,
		Discount:      DiscountKneserNey,
		KeepUnknowns:  true,
		RemoveIllegal: true,
	}
}

// Validate rejects orders below one and unknown or incompatible discounting.
func (p GrammarParams) Validate() error {
	if p.Order < 1 {
		return &UnsupportedParameterError{Name: "ngramorder", Value: p.Order, Reason: "must be >= 1"}
	}
	switch p.Discount {
	case DiscountKneserNey, DiscountWittenBell, DiscountGoodTuring:
	default:
		return &UnsupportedParameterError{Name: "discount", Value: p.Discount, Reason: "expected kn, wb or gt"}
	}
	if p.Interpolate && p.Discount == DiscountGoodTuring {
		return &UnsupportedParameterError{Name: "interpolate", Value: p.Interpolate, Reason: "not available with Good-Turing discounting"}
	}
	return nil
}

// ArpaParams configures grammar (G) conversion from an existing ARPA model.
type ArpaParams struct {
	RemoveIllegal bool
}

// DefaultArpaParams filters illegal symbol sequences.
func DefaultArpaParams() ArpaParams {
	return ArpaParams{RemoveIllegal: true}
}

// DecodeGraphParams configures HCLG composition.
type DecodeGraphParams struct {
	ContextSize     int
	CentralPosition int
	TransitionScale float64
	LoopScale       float64
}

// DefaultDecodeGraphParams is a triphone context with standard scales.
func DefaultDecodeGraphParams() DecodeGraphParams {
	return DecodeGraphParams{ContextSize: 3, CentralPosition: 1, TransitionScale: 1.0, LoopScale: 0.1}
}

// Validate rejects a context window that cannot hold the central phone
// and non-positive scales.
func (p DecodeGraphParams) Validate() error {
	if p.ContextSize < 1 {
		return &UnsupportedParameterError{Name: "contextsize", Value: p.ContextSize, Reason: "must be >= 1"}
	}
	if p.CentralPosition < 0 || p.CentralPosition >= p.ContextSize {
		return &UnsupportedParameterError{Name: "centralposition", Value: p.CentralPosition, Reason: "must lie inside the context window"}
	}
	if p.TransitionScale <= 0 {
		return &UnsupportedParameterError{Name: "transitionscale", Value: p.TransitionScale, Reason: "must be > 0"}
	}
	if p.LoopScale <= 0 {
		return &UnsupportedParameterError{Name: "loopscale", Value: p.LoopScale, Reason: "must be > 0"}
	}
	return nil
}

// FeatureTypeMFCC is the only supported feature type.
const FeatureTypeMFCC = "mfcc"

// FeatureParams configures feature extraction.
type FeatureParams struct {
	Type       string
	SampleFreq int
	UseEnergy  bool
	ApplyCMVN  bool
	NormVars   bool
	DeltaOrder int
}

// DefaultFeatureParams is 16kHz MFCC with CMVN and second-order deltas.
func DefaultFeatureParams() FeatureParams {
	return FeatureParams{
		Type:       FeatureTypeMFCC,
		SampleFreq: 16000,
		ApplyCMVN:  true,
		DeltaOrder: 2,
	}
}

// Validate accepts MFCC with a positive sample rate and non-negative deltas.
func (p FeatureParams) Validate() error {
	if p.Type != FeatureTypeMFCC {
		return &UnsupportedParameterError{Name: "feature type", Value: p.Type}
	}
	if p.SampleFreq <= 0 {
		return &UnsupportedParameterError{Name: "samplefreq", Value: p.SampleFreq, Reason: "must be > 0"}
	}
	if p.DeltaOrder < 0 {
		return &UnsupportedParameterError{Name: "deltaorder", Value: p.DeltaOrder, Reason: "must be >= 0"}
	}
	return nil
}
