package domain

// ToolOverride returns the configured path for a tool, if any.
func (c *Config) ToolOverride(name string) (string, bool) {
	if c.Tools == nil {
		return "", false
	}
	path, ok := c.Tools[name]
	return path, ok && path != ""
}

// WithSymbolDefaults fills every unset symbol with its default name.
func (s SymbolSettings) WithSymbolDefaults() SymbolSettings {
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&s.Epsilon, DefaultEpsilon)
	fill(&s.GrammarDisambig, DefaultGrammarDisambig)
	fill(&s.SilencePhone, DefaultSilencePhone)
	fill(&s.UnknownWord, DefaultUnknownWord)
	fill(&s.SentenceStart, DefaultSentenceStart)
	fill(&s.SentenceEnd, DefaultSentenceEnd)
	fill(&s.WordBoundLeft, DefaultWordBoundLeft)
	fill(&s.WordBoundRight, DefaultWordBoundRight)
	fill(&s.DecodeOOVWord, DefaultDecodeOOVWord)
	fill(&s.DecodeOOVPhone, DefaultDecodeOOVPhone)
	return s
}

// DefaultSymbols returns the symbol set used when nothing is configured.
func DefaultSymbols() SymbolSettings {
	return SymbolSettings{}.WithSymbolDefaults()
}
