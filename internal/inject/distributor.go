// Package inject rewrites résumé bullets so that job keywords reach their
// target mention counts. Edits only ever insert text; nothing in the
// original bullet is removed or reordered.
package inject

import (
	"math/rand/v2"
	"slices"
	"strings"
	"unicode"

	"atstailor/internal/keywords"
	"atstailor/internal/resume"
)

// Distributor places keywords into résumé bullets. A Distributor keeps the
// last connective phrase it used so consecutive passes do not repeat it; it
// is not safe for concurrent use.
type Distributor struct {
	dict       *keywords.Dictionary
	opts       Options
	rng        *rand.Rand
	lastPhrase string
}

// New creates a Distributor. Zero option fields take their defaults.
func New(dict *keywords.Dictionary, opts Options) *Distributor {
	if dict == nil {
		dict = keywords.DefaultDictionary()
	}
	def := DefaultOptions()
	if opts.MaxBulletsPerRole <= 0 {
		opts.MaxBulletsPerRole = def.MaxBulletsPerRole
	}
	if opts.RoleBudgets == nil {
		opts.RoleBudgets = def.RoleBudgets
	}
	if opts.FallbackBudget == (RoleBudget{}) {
		opts.FallbackBudget = def.FallbackBudget
	}
	if opts.Targets == (keywords.Targets{}) {
		opts.Targets = def.Targets
	}
	if opts.MaxSkillAdditions <= 0 {
		opts.MaxSkillAdditions = def.MaxSkillAdditions
	}
	if opts.MaxSummaryAdditions <= 0 {
		opts.MaxSummaryAdditions = def.MaxSummaryAdditions
	}
	return &Distributor{
		dict: dict,
		opts: opts,
		rng:  rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
	}
}

// pass holds the bookkeeping of one Distribute call.
type pass struct {
	set     keywords.Set
	counts  map[string]int
	tallies []Tally
	index   map[string]int
	result  *Result
}

func (p *pass) target(kw string) keywords.Range {
	return p.tallies[p.index[kw]].Target
}

// needs reports whether kw may be inserted into text.
func (p *pass) needs(kw, text string) bool {
	t := p.target(kw)
	c := p.counts[kw]
	return c < t.Min && c+1 <= t.Max && !keywords.ContainsTerm(text, kw)
}

// commit applies the mention changes of an edit from before to after. It
// refuses edits that lose a mention, push a keyword past its maximum, or
// fail to mention want.
func (p *pass) commit(before, after, want string) bool {
	deltas := make(map[string]int)
	for _, kw := range p.set.All {
		d := keywords.CountMentions(after, kw) - keywords.CountMentions(before, kw)
		if d < 0 {
			return false
		}
		if d > 0 && p.counts[kw]+d > p.target(kw).Max {
			return false
		}
		if d != 0 {
			deltas[kw] = d
		}
	}
	if want != "" && deltas[want] == 0 {
		return false
	}
	for kw, d := range deltas {
		p.counts[kw] += d
		t := &p.tallies[p.index[kw]]
		t.Added += d
		t.BulletsTouched++
	}
	return true
}

// Distribute edits the bullets of r in place and reports what changed. When
// every keyword already meets its minimum the résumé is left untouched.
func (d *Distributor) Distribute(r *resume.Resume, set keywords.Set) *Result {
	res := &Result{Resume: r, Tallies: []Tally{}, Insertions: []Insertion{}}
	if r == nil {
		return res
	}

	full := r.Reassemble()
	p := &pass{set: set, counts: make(map[string]int), index: make(map[string]int), result: res}
	set.Each(func(kw string, tier keywords.Tier) {
		c := keywords.CountMentions(full, kw)
		p.counts[kw] = c
		p.index[kw] = len(p.tallies)
		p.tallies = append(p.tallies, Tally{Keyword: kw, Tier: tier, Existing: c, Target: d.opts.Targets.For(tier)})
	})

	for ri, role := range r.Roles() {
		budget := d.opts.budget(ri)
		if budget.KeywordsPerBullet <= 0 {
			continue
		}
		for bi, bullet := range role.Bullets() {
			if bi >= budget.Bullets {
				break
			}
			d.fillBullet(p, role, ri, bi, bullet, budget.KeywordsPerBullet)
		}
	}

	if d.opts.AppendSummary {
		d.appendSummary(p, r)
	}
	if d.opts.AppendSkills {
		d.appendSkills(p, r)
	}

	res.Tallies = p.tallies
	return res
}

func (d *Distributor) fillBullet(p *pass, role *resume.Role, ri, bi int, bullet *resume.Bullet, limit int) {
	if strings.TrimSpace(bullet.Text) == "" {
		return
	}
	var candidates []string
	for _, kw := range p.set.All {
		if p.needs(kw, bullet.Text) {
			candidates = append(candidates, kw)
		}
	}

	placed := 0
	for _, kw := range candidates {
		if placed >= limit {
			return
		}
		if !p.needs(kw, bullet.Text) {
			continue
		}
		before := bullet.Text
		after, strategy, phrase := d.insert(before, kw)
		if !p.commit(before, after, kw) {
			continue
		}
		bullet.Text = after
		if phrase != "" {
			d.lastPhrase = phrase
		}
		placed++
		p.result.Insertions = append(p.result.Insertions, Insertion{
			Keyword:  kw,
			Company:  role.Company,
			Role:     ri,
			Bullet:   bi,
			Strategy: strategy,
			Phrase:   phrase,
			Before:   before,
			After:    after,
		})
	}
}

// insert places kw into text at the first applicable point: after a leading
// action verb, at an early comma, before a final period, or at the end.
func (d *Distributor) insert(text, kw string) (string, Strategy, string) {
	if end := strings.IndexFunc(text, unicode.IsSpace); end > 0 {
		rest := strings.TrimLeft(text[end:], " \t")
		if _, ok := d.dict.ActionVerb(text[:end]); ok && rest != "" && !startsDriven(rest) {
			return text[:end] + " " + kw + "-driven " + rest, StrategyActionVerb, ""
		}
	}

	phrase := d.pickPhrase()
	if idx := strings.Index(text, ", "); idx > 0 && idx < len(text)/2 {
		return text[:idx] + ", " + phrase + " " + kw + text[idx:], StrategyComma, phrase
	}

	trimmed := strings.TrimRight(text, " \t")
	if strings.HasSuffix(trimmed, ".") && !strings.HasSuffix(trimmed, "..") {
		return trimmed[:len(trimmed)-1] + ", " + phrase + " " + kw + ".", StrategyPeriod, phrase
	}
	return trimmed + ", " + phrase + " " + kw, StrategyAppend, phrase
}

func startsDriven(rest string) bool {
	fields := strings.Fields(rest)
	return len(fields) > 0 && strings.HasSuffix(fields[0], "-driven")
}

// pickPhrase draws a connective phrase, never the one used last.
func (d *Distributor) pickPhrase() string {
	phrases := d.dict.Connectives()
	if len(phrases) == 0 {
		return "using"
	}
	i := d.rng.IntN(len(phrases))
	if len(phrases) > 1 && phrases[i] == d.lastPhrase {
		i = (i + 1) % len(phrases)
	}
	return phrases[i]
}

// appendSkills lists technical keywords the résumé never mentions at the end
// of the skills section.
func (d *Distributor) appendSkills(p *pass, r *resume.Resume) {
	skills := r.Section(resume.KindSkills)
	if skills == nil {
		return
	}

	var missing []string
	for _, kw := range p.set.All {
		if len(missing) >= d.opts.MaxSkillAdditions {
			break
		}
		if p.counts[kw] == 0 && p.target(kw).Max > 0 && d.dict.IsTechnical(kw) {
			missing = append(missing, kw)
		}
	}
	if len(missing) == 0 {
		return
	}

	names := make([]string, len(missing))
	for i, kw := range missing {
		names[i] = displayName(kw)
	}
	line := strings.Join(names, ", ")

	saved := slices.Clone(skills.Lines)
	before := skills.Text()
	skills.AppendLine(line)
	if !p.commit(before, skills.Text(), "") {
		skills.Lines = saved
		return
	}
	for _, kw := range missing {
		p.result.Insertions = append(p.result.Insertions, Insertion{
			Keyword:  kw,
			Role:     -1,
			Bullet:   -1,
			Strategy: StrategySkills,
			After:    line,
		})
	}
}

// summaryLead opens the sentence appendSummary writes. A summary that
// already has one is left alone so later passes do not stack sentences.
const summaryLead = "Proficient in "

// appendSummary ends the summary with "Proficient in a, b, c." for high-tier
// keywords that are still below target and absent from the summary.
func (d *Distributor) appendSummary(p *pass, r *resume.Resume) {
	summary := r.Section(resume.KindSummary)
	if summary == nil {
		return
	}
	before := summary.Text()
	if strings.TrimSpace(before) == "" || strings.Contains(before, summaryLead) {
		return
	}

	var missing []string
	for _, kw := range p.set.High {
		if len(missing) >= d.opts.MaxSummaryAdditions {
			break
		}
		if p.needs(kw, before) {
			missing = append(missing, kw)
		}
	}
	if len(missing) == 0 {
		return
	}

	names := make([]string, len(missing))
	for i, kw := range missing {
		names[i] = displayName(kw)
	}
	sentence := summaryLead + strings.Join(names, ", ") + "."

	saved := slices.Clone(summary.Lines)
	last := lastContentLine(summary.Lines)
	if last >= 0 && !summary.Lines[last].IsBullet() {
		text := strings.TrimRight(summary.Lines[last].Text, " \t")
		if !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "!") && !strings.HasSuffix(text, "?") {
			text += "."
		}
		summary.Lines[last].Text = text + " " + sentence
	} else {
		summary.AppendLine(sentence)
	}
	if !p.commit(before, summary.Text(), "") {
		summary.Lines = saved
		return
	}
	for _, kw := range missing {
		p.result.Insertions = append(p.result.Insertions, Insertion{
			Keyword:  kw,
			Role:     -1,
			Bullet:   -1,
			Strategy: StrategySummary,
			After:    sentence,
		})
	}
}

func lastContentLine(lines []resume.Line) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i].Content()) != "" {
			return i
		}
	}
	return -1
}

// displayName capitalizes a keyword for a skills list: short all-letter
// terms become acronyms, anything else gets an upper-case first letter.
func displayName(kw string) string {
	if len(kw) <= 3 && strings.IndexFunc(kw, func(r rune) bool { return !unicode.IsLetter(r) }) < 0 {
		return strings.ToUpper(kw)
	}
	runes := []rune(kw)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
