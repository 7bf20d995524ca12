package domain

import "sort"

// Stamp is a whole-second modification time recorded at build time.
// The zero value means "not yet populated".
type Stamp struct {
	Unix  int64
	Valid bool
}

// StampOf returns a populated Stamp.
func StampOf(unix int64) Stamp {
	return Stamp{Unix: unix, Valid: true}
}

// Attributes is the persisted form of an artifact: named file paths and
// named recorded timestamps. It is what the index record stores on line 3.
type Attributes struct {
	Paths  map[string]string `json:"paths,omitempty"`
	Stamps map[string]int64  `json:"stamps,omitempty"`
}

// NewAttributes returns an empty, writable attribute bag.
func NewAttributes() Attributes {
	return Attributes{Paths: map[string]string{}, Stamps: map[string]int64{}}
}

// Empty reports whether nothing has been recorded.
func (a Attributes) Empty() bool {
	return len(a.Paths) == 0 && len(a.Stamps) == 0
}

// SetPath records a path; empty paths are skipped.
func (a *Attributes) SetPath(key, path string) {
	if path == "" {
		return
	}
	if a.Paths == nil {
		a.Paths = map[string]string{}
	}
	a.Paths[key] = path
}

// SetStamp records a timestamp; unset stamps are skipped.
func (a *Attributes) SetStamp(key string, s Stamp) {
	if !s.Valid {
		return
	}
	if a.Stamps == nil {
		a.Stamps = map[string]int64{}
	}
	a.Stamps[key] = s.Unix
}

// Path returns the recorded path or "" when absent.
func (a Attributes) Path(key string) string {
	return a.Paths[key]
}

// Stamp returns the recorded timestamp or an unset Stamp when absent.
func (a Attributes) Stamp(key string) Stamp {
	v, ok := a.Stamps[key]
	if !ok {
		return Stamp{}
	}
	return StampOf(v)
}

// Files lists every recorded path in key order.
func (a Attributes) Files() []string {
	keys := make([]string, 0, len(a.Paths))
	for k := range a.Paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	files := make([]string, 0, len(keys))
	for _, k := range keys {
		files = append(files, a.Paths[k])
	}
	return files
}

// Artifact is any typed cache record.
type Artifact interface {
	Attributes() Attributes
}

// LexiconGraph is the cached lexicon automaton (L) and copies of its sources.
type LexiconGraph struct {
	Filename    string
	PhonesFile  string
	WordsFile   string
	LexiconFile string
}

func (l LexiconGraph) Attributes() Attributes {
	a := NewAttributes()
	a.SetPath("filename", l.Filename)
	a.SetPath("phonesfile", l.PhonesFile)
	a.SetPath("wordsfile", l.WordsFile)
	a.SetPath("lexiconfile", l.LexiconFile)
	return a
}

// LexiconGraphFrom rebuilds a LexiconGraph from its persisted attributes.
func LexiconGraphFrom(a Attributes) LexiconGraph {
	return LexiconGraph{
		Filename:    a.Path("filename"),
		PhonesFile:  a.Path("phonesfile"),
		WordsFile:   a.Path("wordsfile"),
		LexiconFile: a.Path("lexiconfile"),
	}
}

// GrammarGraph is the cached grammar automaton (G). Transcripts is set when
// the language model was estimated, ArpaFile when it was supplied.
type GrammarGraph struct {
	Filename    string
	WordsFile   string
	Transcripts string
	ArpaFile    string
}

func (g GrammarGraph) Attributes() Attributes {
	a := NewAttributes()
	a.SetPath("filename", g.Filename)
	a.SetPath("wordsfile", g.WordsFile)
	a.SetPath("transcripts", g.Transcripts)
	a.SetPath("arpafile", g.ArpaFile)
	return a
}

func GrammarGraphFrom(a Attributes) GrammarGraph {
	return GrammarGraph{
		Filename:    a.Path("filename"),
		WordsFile:   a.Path("wordsfile"),
		Transcripts: a.Path("transcripts"),
		ArpaFile:    a.Path("arpafile"),
	}
}

// DecodeGraph is the composed HCLG graph. Its sources are not copied, so the
// source modification times at build time are recorded instead.
type DecodeGraph struct {
	Filename    string
	LexiconTime Stamp
	PhonesTime  Stamp
	GrammarTime Stamp
	TreeTime    Stamp
	ModelTime   Stamp
}

func (d DecodeGraph) Attributes() Attributes {
	a := NewAttributes()
	a.SetPath("filename", d.Filename)
	a.SetStamp("lexfst_time", d.LexiconTime)
	a.SetStamp("phonesfile_time", d.PhonesTime)
	a.SetStamp("grammarfst_time", d.GrammarTime)
	a.SetStamp("treefile_time", d.TreeTime)
	a.SetStamp("mdlfile_time", d.ModelTime)
	return a
}

func DecodeGraphFrom(a Attributes) DecodeGraph {
	return DecodeGraph{
		Filename:    a.Path("filename"),
		LexiconTime: a.Stamp("lexfst_time"),
		PhonesTime:  a.Stamp("phonesfile_time"),
		GrammarTime: a.Stamp("grammarfst_time"),
		TreeTime:    a.Stamp("treefile_time"),
		ModelTime:   a.Stamp("mdlfile_time"),
	}
}

// AcousticModel is a GMM model with its decision tree. It is registered,
// never built, so it has no cache record.
type AcousticModel struct {
	Filename string
	TreeFile string
}

// Features is a cached feature archive and copies of its sources.
type Features struct {
	Filename string
	WavScp   string
	Utt2Spk  string
	Spk2Utt  string
}

func (f Features) Attributes() Attributes {
	a := NewAttributes()
	a.SetPath("filename", f.Filename)
	a.SetPath("wavscp", f.WavScp)
	a.SetPath("utt2spk", f.Utt2Spk)
	a.SetPath("spk2utt", f.Spk2Utt)
	return a
}

func FeaturesFrom(a Attributes) Features {
	return Features{
		Filename: a.Path("filename"),
		WavScp:   a.Path("wavscp"),
		Utt2Spk:  a.Path("utt2spk"),
		Spk2Utt:  a.Path("spk2utt"),
	}
}

// Lengths holds per-utterance word and phone durations in integer and text
// form. All fields are empty when no alignment symbols were supplied.
type Lengths struct {
	WordLens     string
	IntWordLens  string
	PhoneLens    string
	IntPhoneLens string
}

func (l Lengths) set(a *Attributes) {
	a.SetPath("wordlens", l.WordLens)
	a.SetPath("intwordlens", l.IntWordLens)
	a.SetPath("phonelens", l.PhoneLens)
	a.SetPath("intphonelens", l.IntPhoneLens)
}

func lengthsFrom(a Attributes) Lengths {
	return Lengths{
		WordLens:     a.Path("wordlens"),
		IntWordLens:  a.Path("intwordlens"),
		PhoneLens:    a.Path("phonelens"),
		IntPhoneLens: a.Path("intphonelens"),
	}
}

// Hypothesis is a cached decoding result.
type Hypothesis struct {
	Filename    string
	IntFilename string
	Lengths

	FeaturesTime     Stamp
	GraphTime        Stamp
	WordsTime        Stamp
	ModelTime        Stamp
	TreeTime         Stamp
	PhonesAlignTime  Stamp
	LexiconAlignTime Stamp
}

func (h Hypothesis) Attributes() Attributes {
	a := NewAttributes()
	a.SetPath("filename", h.Filename)
	a.SetPath("intfilename", h.IntFilename)
	h.Lengths.set(&a)
	a.SetStamp("featsfile_time", h.FeaturesTime)
	a.SetStamp("graphfile_time", h.GraphTime)
	a.SetStamp("wordsfile_time", h.WordsTime)
	a.SetStamp("mdlfile_time", h.ModelTime)
	a.SetStamp("treefile_time", h.TreeTime)
	a.SetStamp("phonesfilealign_time", h.PhonesAlignTime)
	a.SetStamp("lexfstalign_time", h.LexiconAlignTime)
	return a
}

func HypothesisFrom(a Attributes) Hypothesis {
	return Hypothesis{
		Filename:         a.Path("filename"),
		IntFilename:      a.Path("intfilename"),
		Lengths:          lengthsFrom(a),
		FeaturesTime:     a.Stamp("featsfile_time"),
		GraphTime:        a.Stamp("graphfile_time"),
		WordsTime:        a.Stamp("wordsfile_time"),
		ModelTime:        a.Stamp("mdlfile_time"),
		TreeTime:         a.Stamp("treefile_time"),
		PhonesAlignTime:  a.Stamp("phonesfilealign_time"),
		LexiconAlignTime: a.Stamp("lexfstalign_time"),
	}
}

// Alignment is a cached forced alignment of features to transcripts.
type Alignment struct {
	Filename       string
	IntTranscripts string
	Lengths

	FeaturesTime     Stamp
	TranscriptsTime  Stamp
	LexiconTime      Stamp
	ModelTime        Stamp
	TreeTime         Stamp
	PhonesAlignTime  Stamp
	LexiconAlignTime Stamp
}

func (al Alignment) Attributes() Attributes {
	a := NewAttributes()
	a.SetPath("filename", al.Filename)
	a.SetPath("inttranscripts", al.IntTranscripts)
	al.Lengths.set(&a)
	a.SetStamp("featsfile_time", al.FeaturesTime)
	a.SetStamp("transfile_time", al.TranscriptsTime)
	a.SetStamp("lexfst_time", al.LexiconTime)
	a.SetStamp("mdlfile_time", al.ModelTime)
	a.SetStamp("treefile_time", al.TreeTime)
	a.SetStamp("phonesfilealign_time", al.PhonesAlignTime)
	a.SetStamp("lexfstalign_time", al.LexiconAlignTime)
	return a
}

func AlignmentFrom(a Attributes) Alignment {
	return Alignment{
		Filename:         a.Path("filename"),
		IntTranscripts:   a.Path("inttranscripts"),
		Lengths:          lengthsFrom(a),
		FeaturesTime:     a.Stamp("featsfile_time"),
		TranscriptsTime:  a.Stamp("transfile_time"),
		LexiconTime:      a.Stamp("lexfst_time"),
		ModelTime:        a.Stamp("mdlfile_time"),
		TreeTime:         a.Stamp("treefile_time"),
		PhonesAlignTime:  a.Stamp("phonesfilealign_time"),
		LexiconAlignTime: a.Stamp("lexfstalign_time"),
	}
}
