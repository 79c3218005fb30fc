package inject

import (
	"atstailor/internal/keywords"
	"atstailor/internal/resume"
)

// Strategy names the insertion point that was used.
type Strategy string

const (
	StrategyActionVerb Strategy = "action_verb"
	StrategyComma      Strategy = "comma"
	StrategyPeriod     Strategy = "period"
	StrategyAppend     Strategy = "append"
	StrategySkills     Strategy = "skills"
	StrategySummary    Strategy = "summary"
)

// Tally tracks the mentions of one keyword.
type Tally struct {
	Keyword        string         `json:"keyword"`
	Tier           keywords.Tier  `json:"tier"`
	Existing       int            `json:"existingMentions"`
	Added          int            `json:"addedMentions"`
	BulletsTouched int            `json:"bulletsTouched"`
	Target         keywords.Range `json:"target"`
}

// Total is the mention count after distribution.
func (t Tally) Total() int {
	return t.Existing + t.Added
}

// MetTarget reports whether the keyword reached the low end of its range.
func (t Tally) MetTarget() bool {
	return t.Total() >= t.Target.Min
}

// Insertion records one edit.
type Insertion struct {
	Keyword  string   `json:"keyword"`
	Company  string   `json:"company,omitempty"`
	Role     int      `json:"role"`
	Bullet   int      `json:"bullet"`
	Strategy Strategy `json:"strategy"`
	Phrase   string   `json:"phrase,omitempty"`
	Before   string   `json:"before"`
	After    string   `json:"after"`
}

// Result is the outcome of one distribution pass.
type Result struct {
	Resume     *resume.Resume `json:"-"`
	Tallies    []Tally        `json:"tallies"`
	Insertions []Insertion    `json:"insertions"`
}

// Changed reports whether the pass edited anything.
func (r *Result) Changed() bool {
	return len(r.Insertions) > 0
}

// Tally returns the tally for kw.
func (r *Result) Tally(kw string) (Tally, bool) {
	for _, t := range r.Tallies {
		if t.Keyword == kw {
			return t, true
		}
	}
	return Tally{}, false
}

// Absorb folds a later pass into r. Existing mentions stay those of the first
// pass; added mentions, touched bullets and insertions accumulate.
func (r *Result) Absorb(next *Result) {
	if next == nil {
		return
	}
	r.Resume = next.Resume
	index := make(map[string]int, len(r.Tallies))
	for i, t := range r.Tallies {
		index[t.Keyword] = i
	}
	for _, t := range next.Tallies {
		i, ok := index[t.Keyword]
		if !ok {
			r.Tallies = append(r.Tallies, t)
			continue
		}
		r.Tallies[i].Added += t.Added
		r.Tallies[i].BulletsTouched += t.BulletsTouched
	}
	r.Insertions = append(r.Insertions, next.Insertions...)
}
