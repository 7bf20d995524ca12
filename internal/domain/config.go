package domain

// Config mirrors ~/.skip/config.yaml.
type Config struct {
	ConfigFormatVersion string            `yaml:"config_format_version"`
	ContextsDir         string            `yaml:"contexts_dir"`
	KaldiDir            string            `yaml:"kaldi_dir"`
	SRILMDir            string            `yaml:"srilm_dir"`
	ToolDirs            []string          `yaml:"tool_dirs,omitempty"`
	Tools               map[string]string `yaml:"tools,omitempty"`
	Symbols             SymbolSettings    `yaml:"symbols"`
	History             HistorySettings   `yaml:"history"`
	LogLevel            string            `yaml:"log_level"`
}

// SymbolSettings names the reserved symbols shared by the graph recipes.
type SymbolSettings struct {
	Epsilon         string `yaml:"epsilon"`
	GrammarDisambig string `yaml:"grammar_disambig"`
	SilencePhone    string `yaml:"silence_phone"`
	UnknownWord     string `yaml:"unknown_word"`
	SentenceStart   string `yaml:"sentence_start"`
	SentenceEnd     string `yaml:"sentence_end"`
	WordBoundLeft   string `yaml:"word_bound_left"`
	WordBoundRight  string `yaml:"word_bound_right"`
	DecodeOOVWord   string `yaml:"decode_oov_word"`
	DecodeOOVPhone  string `yaml:"decode_oov_phone"`
}

// HistorySettings controls the build history store.
type HistorySettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
