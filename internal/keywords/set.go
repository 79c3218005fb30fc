package keywords

import (
	"fmt"
	"strings"
)

// Tier is the priority bucket of a keyword.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Tiers lists every tier in priority order.
var Tiers = []Tier{TierHigh, TierMedium, TierLow}

// Set is a ranked keyword list split into three disjoint tiers.
// All holds High, Medium and Low concatenated in that order.
type Set struct {
	All    []string `json:"all"`
	High   []string `json:"highPriority"`
	Medium []string `json:"mediumPriority"`
	Low    []string `json:"lowPriority"`
}

// EmptySet returns a set whose tiers are empty but non-nil, so it encodes as [] in JSON.
func EmptySet() Set {
	return Set{All: []string{}, High: []string{}, Medium: []string{}, Low: []string{}}
}

// NewSet normalizes keywords to lowercase and drops duplicates.
// A keyword listed in more than one tier keeps its highest tier.
func NewSet(high, medium, low []string) Set {
	s := EmptySet()
	seen := make(map[string]struct{})
	add := func(dst *[]string, words []string) {
		for _, w := range words {
			w = Normalize(w)
			if w == "" {
				continue
			}
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			*dst = append(*dst, w)
		}
	}
	add(&s.High, high)
	add(&s.Medium, medium)
	add(&s.Low, low)
	s.All = append(s.All, s.High...)
	s.All = append(s.All, s.Medium...)
	s.All = append(s.All, s.Low...)
	return s
}

// Normalize lowercases a keyword and collapses inner whitespace.
func Normalize(w string) string {
	return strings.Join(strings.Fields(strings.ToLower(w)), " ")
}

func (s Set) Len() int      { return len(s.All) }
func (s Set) IsEmpty() bool { return len(s.All) == 0 }

// Tier returns the keywords of one tier.
func (s Set) Tier(t Tier) []string {
	switch t {
	case TierHigh:
		return s.High
	case TierMedium:
		return s.Medium
	default:
		return s.Low
	}
}

// TierOf returns the tier of keyword kw.
func (s Set) TierOf(kw string) (Tier, bool) {
	kw = Normalize(kw)
	for _, t := range Tiers {
		for _, w := range s.Tier(t) {
			if w == kw {
				return t, true
			}
		}
	}
	return "", false
}

// Each calls fn for every keyword in priority order.
func (s Set) Each(fn func(kw string, t Tier)) {
	for _, t := range Tiers {
		for _, w := range s.Tier(t) {
			fn(w, t)
		}
	}
}

// Range is an inclusive target mention range.
type Range struct {
	Min int `json:"min" yaml:"min" mapstructure:"min"`
	Max int `json:"max" yaml:"max" mapstructure:"max"`
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// Targets holds the mention range per tier.
type Targets struct {
	High   Range `json:"high" yaml:"high" mapstructure:"high"`
	Medium Range `json:"medium" yaml:"medium" mapstructure:"medium"`
	Low    Range `json:"low" yaml:"low" mapstructure:"low"`
}

// DefaultTargets returns high/medium 3-5 and low 1-2.
func DefaultTargets() Targets {
	return Targets{
		High:   Range{Min: 3, Max: 5},
		Medium: Range{Min: 3, Max: 5},
		Low:    Range{Min: 1, Max: 2},
	}
}

// For returns the range that applies to tier t.
func (t Targets) For(tier Tier) Range {
	switch tier {
	case TierHigh:
		return t.High
	case TierMedium:
		return t.Medium
	default:
		return t.Low
	}
}

// Validate checks that every range is well formed.
func (t Targets) Validate() error {
	for _, tier := range Tiers {
		r := t.For(tier)
		if r.Min < 0 || r.Max < r.Min {
			return fmt.Errorf("invalid %s tier range %s", tier, r)
		}
	}
	return nil
}
