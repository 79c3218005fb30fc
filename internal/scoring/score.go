// Package scoring measures how well a text covers a keyword set.
package scoring

import (
	"math"

	"atstailor/internal/keywords"
)

// Result is the keyword coverage of a text.
type Result struct {
	Percent int      `json:"percent"`
	Matched []string `json:"matched"`
	Missing []string `json:"missing"`
	Total   int      `json:"total"`
}

// Score returns the share of keywords mentioned at least once in text.
// An empty set scores 0.
func Score(text string, set keywords.Set) Result {
	res := Result{Matched: []string{}, Missing: []string{}, Total: set.Len()}
	for _, kw := range set.All {
		if keywords.ContainsTerm(text, kw) {
			res.Matched = append(res.Matched, kw)
		} else {
			res.Missing = append(res.Missing, kw)
		}
	}
	if res.Total > 0 {
		res.Percent = int(math.Round(100 * float64(len(res.Matched)) / float64(res.Total)))
	}
	return res
}
