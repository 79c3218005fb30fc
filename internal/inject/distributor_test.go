package inject

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atstailor/internal/keywords"
	"atstailor/internal/resume"
)

func TestDistributeExample(t *testing.T) {
	r := resume.Parse("EXPERIENCE\nAcme | Engineer | 2020 - 2022\n- Built internal dashboards for sales reporting.\n")
	set := keywords.NewSet([]string{"python", "aws"}, nil, nil)

	res := New(nil, Options{Seed: 7}).Distribute(r, set)

	bullet := r.Roles()[0].Bullets()[0].Text
	m := regexp.MustCompile(`^Built python-driven internal dashboards for sales reporting, (.+) aws\.$`).FindStringSubmatch(bullet)
	require.NotNil(t, m, bullet)
	assert.Contains(t, keywords.DefaultDictionary().Connectives(), m[1])

	for _, kw := range []string{"python", "aws"} {
		tally, ok := res.Tally(kw)
		require.True(t, ok)
		assert.Equal(t, 0, tally.Existing)
		assert.Equal(t, 1, tally.Added)
		assert.Equal(t, 1, tally.BulletsTouched)
	}
	require.Len(t, res.Insertions, 2)
	assert.Equal(t, StrategyActionVerb, res.Insertions[0].Strategy)
	assert.Equal(t, StrategyPeriod, res.Insertions[1].Strategy)
	assert.Equal(t, "Acme", res.Insertions[0].Company)
}

func TestDistributeTargetsAlreadyMet(t *testing.T) {
	text := "SKILLS\nPython, AWS\n\nEXPERIENCE\nAcme | Engineer | 2020 - 2022\n" +
		"- Built Python services on AWS\n- Ran Python jobs on AWS\n"
	r := resume.Parse(text)
	set := keywords.NewSet([]string{"python", "aws"}, nil, nil)

	res := New(nil, Options{}).Distribute(r, set)

	assert.False(t, res.Changed())
	assert.Equal(t, text, r.Reassemble())
	for _, tally := range res.Tallies {
		assert.Equal(t, 3, tally.Existing)
		assert.Zero(t, tally.Added)
		assert.True(t, tally.MetTarget())
	}
}

func manyBulletResume(n int) string {
	var b strings.Builder
	b.WriteString("EXPERIENCE\nAcme | Engineer | 2020 - 2022\n")
	for i := range n {
		fmt.Fprintf(&b, "- Item %d shipped for customers\n", i+1)
	}
	return b.String()
}

func TestDistributeStopsAtMinimum(t *testing.T) {
	r := resume.Parse(manyBulletResume(6))
	set := keywords.NewSet([]string{"kafka"}, nil, []string{"redis"})

	res := New(nil, Options{Seed: 1}).Distribute(r, set)
	out := r.Reassemble()

	assert.Equal(t, 3, keywords.CountMentions(out, "kafka"))
	assert.Equal(t, 1, keywords.CountMentions(out, "redis"))
	tally, _ := res.Tally("kafka")
	assert.Equal(t, 3, tally.Added)
	assert.Len(t, res.Insertions, 4)
}

func TestDistributeNeverExceedsMaximum(t *testing.T) {
	text := "EXPERIENCE\nAcme | Engineer | 2020 - 2022\n" + strings.Repeat("- Wrote Python code\n", 6) + "- Item shipped\n"
	r := resume.Parse(text)
	set := keywords.NewSet([]string{"python"}, nil, nil)

	res := New(nil, Options{}).Distribute(r, set)

	assert.False(t, res.Changed())
	assert.Equal(t, 6, keywords.CountMentions(r.Reassemble(), "python"))
}

func TestDistributePreservesFacts(t *testing.T) {
	text := "EXPERIENCE\nAcme Corp | Senior Engineer | Jan 2021 - Present | Berlin\n" +
		"- Reduced p99 latency by 40%, saving $120K per year\n" +
		"- Our reporting stack, rebuilt from scratch for the finance org\n" +
		"Globex — Engineer\nMar 2017 - Dec 2020\n- Migrated 3 services to containers.\n"
	r := resume.Parse(text)
	before := r.Roles()
	type facts struct{ company, title, dates, location string }
	var want []facts
	for _, role := range before {
		want = append(want, facts{role.Company, role.Title, role.DateRange, role.Location})
	}
	set := keywords.NewSet([]string{"kubernetes", "go"}, []string{"terraform"}, []string{"grpc"})

	res := New(nil, Options{Seed: 3}).Distribute(r, set)
	require.True(t, res.Changed())

	reparsed := resume.Parse(r.Reassemble())
	require.Len(t, reparsed.Roles(), len(want))
	for i, role := range reparsed.Roles() {
		assert.Equal(t, want[i], facts{role.Company, role.Title, role.DateRange, role.Location})
	}
	for _, ins := range res.Insertions {
		assert.True(t, isSubsequence(ins.Before, ins.After), "%q -> %q", ins.Before, ins.After)
	}
	out := r.Reassemble()
	for _, fact := range []string{"40%", "$120K", "3 services"} {
		assert.Contains(t, out, fact)
	}
}

func isSubsequence(short, long string) bool {
	i := 0
	for _, r := range long {
		if i < len([]rune(short)) && []rune(short)[i] == r {
			i++
		}
	}
	return i == len([]rune(short))
}

func TestInsertStrategies(t *testing.T) {
	d := New(nil, Options{Seed: 1})

	tests := []struct {
		name     string
		text     string
		strategy Strategy
		check    func(t *testing.T, out string)
	}{
		{
			name:     "action verb",
			text:     "Built internal tools.",
			strategy: StrategyActionVerb,
			check: func(t *testing.T, out string) {
				assert.Equal(t, "Built go-driven internal tools.", out)
			},
		},
		{
			name:     "early comma",
			text:     "Our latency work, then shipped a big migration project",
			strategy: StrategyComma,
			check: func(t *testing.T, out string) {
				assert.True(t, strings.HasPrefix(out, "Our latency work, "))
				assert.True(t, strings.HasSuffix(out, " go, then shipped a big migration project"))
			},
		},
		{
			name:     "trailing period",
			text:     "Billing revamp for enterprise customers.",
			strategy: StrategyPeriod,
			check: func(t *testing.T, out string) {
				assert.True(t, strings.HasPrefix(out, "Billing revamp for enterprise customers, "))
				assert.True(t, strings.HasSuffix(out, " go."))
			},
		},
		{
			name:     "late comma appends",
			text:     "Billing revamp, enterprise",
			strategy: StrategyAppend,
			check: func(t *testing.T, out string) {
				assert.True(t, strings.HasPrefix(out, "Billing revamp, enterprise, "))
				assert.True(t, strings.HasSuffix(out, " go"))
			},
		},
		{
			name:     "single driven per bullet",
			text:     "Built python-driven APIs",
			strategy: StrategyAppend,
			check: func(t *testing.T, out string) {
				assert.Equal(t, 1, strings.Count(out, "-driven"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, strategy, phrase := d.insert(tt.text, "go")
			assert.Equal(t, tt.strategy, strategy)
			if strategy != StrategyActionVerb {
				assert.NotEmpty(t, phrase)
			}
			tt.check(t, out)
		})
	}
}

func TestPickPhraseNeverRepeats(t *testing.T) {
	d := New(nil, Options{Seed: 42})
	prev := ""
	for range 200 {
		p := d.pickPhrase()
		assert.NotEqual(t, prev, p)
		d.lastPhrase = p
		prev = p
	}
}

func TestDistributeDeterministicForSeed(t *testing.T) {
	set := keywords.NewSet([]string{"kafka", "redis"}, []string{"docker"}, nil)
	run := func() string {
		r := resume.Parse(manyBulletResume(5))
		New(nil, Options{Seed: 9}).Distribute(r, set)
		return r.Reassemble()
	}
	assert.Equal(t, run(), run())
}

func TestRoleBudgets(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, RoleBudget{KeywordsPerBullet: 3, Bullets: 6}, opts.budget(0))
	assert.Equal(t, RoleBudget{KeywordsPerBullet: 2, Bullets: 3}, opts.budget(3))
	assert.Equal(t, RoleBudget{KeywordsPerBullet: 1, Bullets: 2}, opts.budget(7))

	opts.MaxBulletsPerRole = 4
	assert.Equal(t, 4, opts.budget(0).Bullets)
	assert.Equal(t, 3, opts.budget(3).Bullets)
}

func TestDistributeOlderRolesGetLess(t *testing.T) {
	var b strings.Builder
	b.WriteString("EXPERIENCE\n")
	for i := range 5 {
		fmt.Fprintf(&b, "Company%d | Engineer | 201%d - 201%d\n", i, i, i+1)
		for j := range 4 {
			fmt.Fprintf(&b, "- Task %d shipped\n", j)
		}
	}
	r := resume.Parse(b.String())
	high := []string{"kafka", "redis", "docker", "helm", "grpc"}
	set := keywords.NewSet(high, nil, nil)

	New(nil, Options{Seed: 5}).Distribute(r, set)

	roles := r.Roles()
	require.Len(t, roles, 5)
	assert.Equal(t, 0, mentionsIn(roles[4], high), "budget is exhausted before the oldest role")
	assert.Greater(t, mentionsIn(roles[0], high), mentionsIn(roles[1], high)-1)
}

func mentionsIn(role *resume.Role, kws []string) int {
	n := 0
	for _, kw := range kws {
		n += keywords.CountMentions(role.Text(), kw)
	}
	return n
}

func TestAppendSkills(t *testing.T) {
	r := resume.Parse("SKILLS\nGo, SQL\n")
	set := keywords.NewSet([]string{"terraform", "kafka", "synergy"}, nil, []string{"aws"})

	res := New(nil, Options{AppendSkills: true}).Distribute(r, set)

	assert.Equal(t, "SKILLS\nGo, SQL\nTerraform, Kafka, AWS\n", r.Reassemble())
	var skills []string
	for _, ins := range res.Insertions {
		if ins.Strategy == StrategySkills {
			skills = append(skills, ins.Keyword)
		}
	}
	assert.Equal(t, []string{"terraform", "kafka", "aws"}, skills)
	tally, _ := res.Tally("terraform")
	assert.Equal(t, 1, tally.Added)
}

func TestAppendSummary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "extends last sentence",
			in:   "SUMMARY\nBackend engineer with 8 years of experience\n\nSKILLS\nGo\n",
			want: "SUMMARY\nBackend engineer with 8 years of experience. Proficient in Kafka, Redis.\n\nSKILLS\nGo\n",
		},
		{
			name: "keeps existing period",
			in:   "SUMMARY\nBackend engineer.\nShips reliable services.",
			want: "SUMMARY\nBackend engineer.\nShips reliable services. Proficient in Kafka, Redis.",
		},
		{
			name: "bulleted summary gets a new line",
			in:   "SUMMARY\n- Backend engineer",
			want: "SUMMARY\n- Backend engineer\nProficient in Kafka, Redis.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resume.Parse(tt.in)
			set := keywords.NewSet([]string{"kafka", "redis"}, []string{"docker"}, nil)

			res := New(nil, Options{AppendSummary: true}).Distribute(r, set)

			assert.Equal(t, tt.want, r.Reassemble())
			var placed []string
			for _, ins := range res.Insertions {
				if ins.Strategy == StrategySummary {
					placed = append(placed, ins.Keyword)
				}
			}
			assert.Equal(t, []string{"kafka", "redis"}, placed, "only high-tier keywords")
			tally, _ := res.Tally("kafka")
			assert.Equal(t, 1, tally.Added)
		})
	}
}

func TestAppendSummarySkipsCoveredKeywords(t *testing.T) {
	r := resume.Parse("SUMMARY\nBackend engineer using Kafka daily.\n")
	set := keywords.NewSet([]string{"kafka", "redis"}, nil, nil)

	res := New(nil, Options{AppendSummary: true}).Distribute(r, set)

	assert.Equal(t, "SUMMARY\nBackend engineer using Kafka daily. Proficient in Redis.\n", r.Reassemble())
	require.Len(t, res.Insertions, 1)

	again := resume.Parse(r.Reassemble())
	res = New(nil, Options{AppendSummary: true}).Distribute(again, set)
	assert.Empty(t, res.Insertions, "a summary sentence is written once")
	assert.Equal(t, r.Reassemble(), again.Reassemble())
}

func TestAppendSummaryRespectsMax(t *testing.T) {
	r := resume.Parse("SUMMARY\nBackend engineer.\n")
	set := keywords.NewSet([]string{"kafka"}, nil, nil)
	targets := keywords.DefaultTargets()
	targets.High = keywords.Range{Min: 0, Max: 0}

	res := New(nil, Options{AppendSummary: true, Targets: targets}).Distribute(r, set)

	assert.Empty(t, res.Insertions)
	assert.Equal(t, "SUMMARY\nBackend engineer.\n", r.Reassemble())
}

func TestAppendSummaryOff(t *testing.T) {
	r := resume.Parse("SUMMARY\nBackend engineer.\n")
	res := New(nil, Options{}).Distribute(r, keywords.NewSet([]string{"kafka"}, nil, nil))

	assert.Empty(t, res.Insertions)
}

func TestAbsorb(t *testing.T) {
	first := &Result{
		Tallies:    []Tally{{Keyword: "go", Existing: 1, Added: 1, BulletsTouched: 1}},
		Insertions: []Insertion{{Keyword: "go"}},
	}
	second := &Result{
		Tallies:    []Tally{{Keyword: "go", Existing: 2, Added: 1, BulletsTouched: 1}, {Keyword: "aws", Added: 2}},
		Insertions: []Insertion{{Keyword: "go"}, {Keyword: "aws"}},
	}

	first.Absorb(second)

	goTally, _ := first.Tally("go")
	assert.Equal(t, Tally{Keyword: "go", Existing: 1, Added: 2, BulletsTouched: 2}, goTally)
	assert.Len(t, first.Insertions, 3)
	assert.True(t, slices.ContainsFunc(first.Tallies, func(t Tally) bool { return t.Keyword == "aws" }))
}
