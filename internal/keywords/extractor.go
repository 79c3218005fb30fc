package keywords

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Options tunes scoring and tier sizes.
type Options struct {
	MinTextLength  int     // shorter job descriptions yield an empty set
	DefaultMax     int     // used when Extract is called with max <= 0
	TechnicalBoost int     // frequency multiplier for technical terms
	PhraseBonus    int     // added once for every known phrase present
	MinPlainLength int     // non-technical words must be at least this long
	HighRatio      float64 // share of ranked keywords in the high tier
	HighCap        int
	MediumRatio    float64
	MediumCap      int
}

// DefaultOptions returns the standard extraction settings.
func DefaultOptions() Options {
	return Options{
		MinTextLength:  50,
		DefaultMax:     35,
		TechnicalBoost: 5,
		PhraseBonus:    10,
		MinPlainLength: 5,
		HighRatio:      0.45,
		HighCap:        15,
		MediumRatio:    0.35,
		MediumCap:      10,
	}
}

// Extractor turns job description text into a tiered keyword set.
// It is a pure function of its dictionary, options and input.
type Extractor struct {
	dict *Dictionary
	opts Options
}

// NewExtractor creates an extractor. A nil dictionary means DefaultDictionary.
func NewExtractor(dict *Dictionary, opts Options) *Extractor {
	if dict == nil {
		dict = DefaultDictionary()
	}
	def := DefaultOptions()
	if opts.MinTextLength <= 0 {
		opts.MinTextLength = def.MinTextLength
	}
	if opts.DefaultMax <= 0 {
		opts.DefaultMax = def.DefaultMax
	}
	if opts.TechnicalBoost <= 0 {
		opts.TechnicalBoost = def.TechnicalBoost
	}
	if opts.HighRatio <= 0 {
		opts.HighRatio, opts.HighCap = def.HighRatio, def.HighCap
	}
	if opts.MediumRatio <= 0 {
		opts.MediumRatio, opts.MediumCap = def.MediumRatio, def.MediumCap
	}
	return &Extractor{dict: dict, opts: opts}
}

// Dictionary returns the dictionary the extractor uses.
func (e *Extractor) Dictionary() *Dictionary {
	return e.dict
}

var stripPattern = regexp.MustCompile(`[^a-z0-9\s\-/.#+]`)

type scored struct {
	term  string
	score int
	order int
}

// Extract ranks the terms of text and returns the top limit of them split into tiers.
func (e *Extractor) Extract(text string, limit int) Set {
	if utf8.RuneCountInString(text) < e.opts.MinTextLength {
		return EmptySet()
	}
	if limit <= 0 {
		limit = e.opts.DefaultMax
	}

	lower := strings.ToLower(text)
	freq := make(map[string]int)
	order := make(map[string]int)
	note := func(term string) {
		if _, ok := order[term]; !ok {
			order[term] = len(order)
		}
	}

	for _, tok := range strings.Fields(stripPattern.ReplaceAllString(lower, " ")) {
		tok = cleanToken(tok)
		if !e.keepToken(tok) {
			continue
		}
		note(tok)
		freq[tok]++
	}

	for _, soft := range e.dict.lists.SoftSkills {
		if !strings.Contains(soft, " ") {
			continue
		}
		if n := CountMentions(lower, soft); n > 0 {
			for _, w := range strings.Fields(soft) {
				freq[cleanToken(w)] -= n
			}
		}
	}

	// Known phrases get a flat bonus. The plain words a multi-word phrase is
	// made of do not also rank from the same occurrences.
	bonus := make(map[string]int)
	for _, phrase := range e.dict.Phrases() {
		if e.dict.IsSoftSkill(phrase) {
			continue
		}
		n := CountMentions(lower, phrase)
		if n == 0 {
			continue
		}
		bonus[phrase] = e.opts.PhraseBonus
		note(phrase)
		if !strings.Contains(phrase, " ") {
			freq[phrase] = max(freq[phrase], n)
			continue
		}
		freq[phrase] = n
		for _, w := range strings.Fields(phrase) {
			if _, tech := e.dict.technical[w]; !tech {
				freq[cleanToken(w)] -= n
			}
		}
	}

	ranked := make([]scored, 0, len(freq))
	for term, n := range freq {
		if n <= 0 {
			continue
		}
		s := n
		if _, tech := e.dict.technical[term]; tech {
			s *= e.opts.TechnicalBoost
		}
		s += bonus[term]
		ranked = append(ranked, scored{term: term, score: s, order: order[term]})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].order < ranked[j].order
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	terms := make([]string, len(ranked))
	for i, r := range ranked {
		terms[i] = r.term
	}
	return e.partition(terms)
}

func (e *Extractor) partition(terms []string) Set {
	n := len(terms)
	high := min(e.opts.HighCap, int(math.Ceil(float64(n)*e.opts.HighRatio)))
	high = min(high, n)
	medium := min(e.opts.MediumCap, int(math.Ceil(float64(n)*e.opts.MediumRatio)))
	medium = min(medium, n-high)
	return NewSet(terms[:high], terms[high:high+medium], terms[high+medium:])
}

func (e *Extractor) keepToken(tok string) bool {
	if len(tok) < 2 || isNumeric(tok) {
		return false
	}
	if e.dict.IsStopWord(tok) || e.dict.IsSoftSkill(tok) {
		return false
	}
	if _, tech := e.dict.technical[tok]; tech {
		return true
	}
	return len(tok) >= e.opts.MinPlainLength
}

// cleanToken strips sentence punctuation that the character filter keeps,
// such as the period ending "kubernetes." or a dash used as a separator.
func cleanToken(tok string) string {
	tok = strings.TrimRight(tok, ".-/")
	tok = strings.TrimLeft(tok, "-/")
	return tok
}

func isNumeric(tok string) bool {
	for _, r := range tok {
		if !unicode.IsDigit(r) && r != '.' && r != '+' && r != '/' && r != '-' {
			return false
		}
	}
	return true
}
