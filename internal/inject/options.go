package inject

import "atstailor/internal/keywords"

// RoleBudget limits how much a single role is edited.
type RoleBudget struct {
	KeywordsPerBullet int `json:"keywordsPerBullet" mapstructure:"keywordsPerBullet"`
	Bullets           int `json:"bullets" mapstructure:"bullets"`
}

// Options configures a Distributor.
type Options struct {
	// MaxBulletsPerRole caps the bullets of any role that may be edited.
	MaxBulletsPerRole int
	// RoleBudgets is indexed by role recency, most recent first. Roles past
	// the end of the list use FallbackBudget.
	RoleBudgets    []RoleBudget
	FallbackBudget RoleBudget
	Targets        keywords.Targets
	// Seed drives connective phrase selection. Equal seeds give equal output.
	Seed uint64
	// AppendSkills adds missing technical keywords to the skills section.
	AppendSkills      bool
	MaxSkillAdditions int
	// AppendSummary closes the summary with a sentence naming high-tier
	// keywords that are still below target.
	AppendSummary       bool
	MaxSummaryAdditions int
}

// DefaultOptions returns the standard distribution settings.
func DefaultOptions() Options {
	return Options{
		MaxBulletsPerRole: 6,
		RoleBudgets: []RoleBudget{
			{KeywordsPerBullet: 3, Bullets: 6},
			{KeywordsPerBullet: 3, Bullets: 5},
			{KeywordsPerBullet: 2, Bullets: 4},
			{KeywordsPerBullet: 2, Bullets: 3},
		},
		FallbackBudget:      RoleBudget{KeywordsPerBullet: 1, Bullets: 2},
		Targets:             keywords.DefaultTargets(),
		MaxSkillAdditions:   8,
		MaxSummaryAdditions: 5,
	}
}

func (o Options) budget(role int) RoleBudget {
	b := o.FallbackBudget
	if role < len(o.RoleBudgets) {
		b = o.RoleBudgets[role]
	}
	if o.MaxBulletsPerRole > 0 && b.Bullets > o.MaxBulletsPerRole {
		b.Bullets = o.MaxBulletsPerRole
	}
	return b
}
