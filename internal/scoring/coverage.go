package scoring

import (
	"fmt"
	"math"
	"strings"

	"atstailor/internal/keywords"
	"atstailor/internal/resume"
)

// DensityLimit is the keyword density, in percent of all words, above which
// a keyword reads as stuffed.
const DensityLimit = 5.0

// KeywordCoverage describes one keyword before and after tailoring.
type KeywordCoverage struct {
	Keyword     string              `json:"keyword"`
	Tier        keywords.Tier       `json:"tier"`
	Original    int                 `json:"original"`
	Final       int                 `json:"final"`
	Added       int                 `json:"added"`
	Target      keywords.Range      `json:"target"`
	Met         bool                `json:"met"`
	Density     float64             `json:"density"`
	OverDensity bool                `json:"overDensity"`
	Sections    map[resume.Kind]int `json:"sections,omitempty"`
}

// Coverage is the per keyword report for a tailored résumé.
type Coverage struct {
	Keywords   []KeywordCoverage `json:"keywords"`
	TotalWords int               `json:"totalWords"`
	MetCount   int               `json:"metCount"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// BuildCoverage compares mention counts of every keyword in original and final.
func BuildCoverage(original, final string, set keywords.Set, targets keywords.Targets) Coverage {
	words := len(strings.Fields(final))
	parsed := resume.Parse(final)
	cov := Coverage{Keywords: []KeywordCoverage{}, TotalWords: words}

	set.Each(func(kw string, tier keywords.Tier) {
		kc := KeywordCoverage{
			Keyword:  kw,
			Tier:     tier,
			Original: keywords.CountMentions(original, kw),
			Final:    keywords.CountMentions(final, kw),
			Target:   targets.For(tier),
			Sections: sectionCounts(parsed, kw),
		}
		kc.Added = kc.Final - kc.Original
		kc.Met = kc.Final >= kc.Target.Min
		if words > 0 {
			share := float64(kc.Final*len(strings.Fields(kw))) / float64(words) * 100
			kc.Density = math.Round(share*100) / 100
		}
		if kc.Density > DensityLimit {
			kc.OverDensity = true
			cov.Warnings = append(cov.Warnings, fmt.Sprintf("keyword %q density %.2f%% exceeds %.0f%%", kw, kc.Density, DensityLimit))
		}
		if kc.Met {
			cov.MetCount++
		}
		cov.Keywords = append(cov.Keywords, kc)
	})
	return cov
}

func sectionCounts(r *resume.Resume, kw string) map[resume.Kind]int {
	counts := make(map[resume.Kind]int)
	for _, s := range r.Sections {
		if n := keywords.CountMentions(s.Text(), kw); n > 0 {
			counts[s.Kind] += n
		}
	}
	if len(counts) == 0 {
		return nil
	}
	return counts
}
