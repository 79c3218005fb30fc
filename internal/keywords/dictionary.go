package keywords

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"strings"
)

// Lists is the serializable form of a Dictionary.
type Lists struct {
	StopWords   []string `yaml:"stopWords" json:"stopWords"`
	SoftSkills  []string `yaml:"softSkills" json:"softSkills"`
	Technical   []string `yaml:"technical" json:"technical"`
	Phrases     []string `yaml:"phrases" json:"phrases"`
	ActionVerbs []string `yaml:"actionVerbs" json:"actionVerbs"`
	Connectives []string `yaml:"connectives" json:"connectives"`
}

// Dictionary holds the fixed word lists used by extraction and injection.
// It is immutable after construction and safe for concurrent use.
type Dictionary struct {
	lists       Lists
	stopWords   map[string]struct{}
	softSkills  map[string]struct{}
	technical   map[string]struct{}
	actionVerbs map[string]string
	fingerprint string
}

// NewDictionary normalizes the lists and builds the lookup sets.
func NewDictionary(l Lists) *Dictionary {
	norm := Lists{
		StopWords:   normalizeList(l.StopWords),
		SoftSkills:  normalizeList(l.SoftSkills),
		Technical:   normalizeList(l.Technical),
		Phrases:     normalizeList(l.Phrases),
		ActionVerbs: dedupFold(l.ActionVerbs),
		Connectives: normalizeList(l.Connectives),
	}

	d := &Dictionary{
		lists:       norm,
		stopWords:   toSet(norm.StopWords),
		softSkills:  toSet(norm.SoftSkills),
		technical:   toSet(norm.Technical),
		actionVerbs: make(map[string]string, len(norm.ActionVerbs)),
	}
	for _, v := range norm.ActionVerbs {
		d.actionVerbs[strings.ToLower(v)] = v
	}
	d.fingerprint = fingerprintOf(norm)
	return d
}

// DefaultDictionary returns the built-in dictionary.
func DefaultDictionary() *Dictionary {
	return NewDictionary(DefaultLists())
}

// Lists returns a copy of the normalized lists.
func (d *Dictionary) Lists() Lists {
	return Lists{
		StopWords:   slices.Clone(d.lists.StopWords),
		SoftSkills:  slices.Clone(d.lists.SoftSkills),
		Technical:   slices.Clone(d.lists.Technical),
		Phrases:     slices.Clone(d.lists.Phrases),
		ActionVerbs: slices.Clone(d.lists.ActionVerbs),
		Connectives: slices.Clone(d.lists.Connectives),
	}
}

func (d *Dictionary) IsStopWord(w string) bool {
	_, ok := d.stopWords[w]
	return ok
}

func (d *Dictionary) IsSoftSkill(w string) bool {
	_, ok := d.softSkills[w]
	return ok
}

// IsTechnical reports whether term (single word or phrase) is a known technical term.
func (d *Dictionary) IsTechnical(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if _, ok := d.technical[term]; ok {
		return true
	}
	return slices.Contains(d.lists.Phrases, term)
}

// ActionVerb returns the canonical spelling of word when it is a known action verb.
func (d *Dictionary) ActionVerb(word string) (string, bool) {
	v, ok := d.actionVerbs[strings.ToLower(word)]
	return v, ok
}

func (d *Dictionary) Phrases() []string     { return d.lists.Phrases }
func (d *Dictionary) Connectives() []string { return d.lists.Connectives }

// Fingerprint identifies the dictionary contents; it changes whenever any list changes.
func (d *Dictionary) Fingerprint() string {
	return d.fingerprint
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, w := range in {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func dedupFold(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, w := range in {
		w = strings.TrimSpace(w)
		key := strings.ToLower(w)
		if w == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, w)
	}
	return out
}

func toSet(in []string) map[string]struct{} {
	set := make(map[string]struct{}, len(in))
	for _, w := range in {
		set[w] = struct{}{}
	}
	return set
}

func fingerprintOf(l Lists) string {
	h := sha256.New()
	for _, list := range [][]string{l.StopWords, l.SoftSkills, l.Technical, l.Phrases, l.ActionVerbs, l.Connectives} {
		sorted := slices.Clone(list)
		slices.Sort(sorted)
		fmt.Fprintf(h, "%d:%s;", len(sorted), strings.Join(sorted, "\x00"))
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}
