package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atstailor/internal/keywords"
	"atstailor/internal/resume"
)

func TestScore(t *testing.T) {
	set := keywords.NewSet([]string{"python", "aws"}, []string{"docker"}, nil)

	tests := []struct {
		name    string
		text    string
		percent int
		matched []string
		missing []string
	}{
		{name: "none", text: "Wrote COBOL", percent: 0, matched: []string{}, missing: []string{"python", "aws", "docker"}},
		{name: "one of three rounds to 33", text: "Python only", percent: 33, matched: []string{"python"}, missing: []string{"aws", "docker"}},
		{name: "two of three rounds to 67", text: "python on AWS", percent: 67, matched: []string{"python", "aws"}, missing: []string{"docker"}},
		{name: "all", text: "Python, AWS and Docker", percent: 100, matched: []string{"python", "aws", "docker"}, missing: []string{}},
		{name: "substring is not a match", text: "awsome dockerfile", percent: 0, matched: []string{}, missing: []string{"python", "aws", "docker"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Score(tt.text, set)
			assert.Equal(t, tt.percent, res.Percent)
			assert.Equal(t, tt.matched, res.Matched)
			assert.Equal(t, tt.missing, res.Missing)
			assert.Equal(t, 3, res.Total)
		})
	}
}

func TestScoreEmptySet(t *testing.T) {
	res := Score("anything at all", keywords.EmptySet())

	assert.Equal(t, 0, res.Percent)
	assert.Zero(t, res.Total)
	assert.Empty(t, res.Matched)
}

func TestBuildCoverage(t *testing.T) {
	original := "EXPERIENCE\nAcme | Engineer | 2020 - 2022\n- Built dashboards\n"
	final := "EXPERIENCE\nAcme | Engineer | 2020 - 2022\n- Built python-driven dashboards, using aws\n\nSKILLS\nPython"
	set := keywords.NewSet([]string{"python", "aws"}, nil, []string{"kafka"})

	cov := BuildCoverage(original, final, set, keywords.DefaultTargets())

	require.Len(t, cov.Keywords, 3)
	py := cov.Keywords[0]
	assert.Equal(t, "python", py.Keyword)
	assert.Equal(t, 0, py.Original)
	assert.Equal(t, 2, py.Final)
	assert.Equal(t, 2, py.Added)
	assert.False(t, py.Met)
	assert.Equal(t, map[resume.Kind]int{resume.KindExperience: 1, resume.KindSkills: 1}, py.Sections)

	kafka := cov.Keywords[2]
	assert.Zero(t, kafka.Final)
	assert.Nil(t, kafka.Sections)
	assert.Zero(t, cov.MetCount)

	assert.True(t, py.OverDensity, "two mentions in a short text is stuffing")
	assert.NotEmpty(t, cov.Warnings)
}

func TestBuildCoverageMet(t *testing.T) {
	text := "aws aws aws " + repeatWords("word", 100)
	set := keywords.NewSet([]string{"aws"}, nil, nil)

	cov := BuildCoverage(text, text, set, keywords.DefaultTargets())

	require.Len(t, cov.Keywords, 1)
	assert.True(t, cov.Keywords[0].Met)
	assert.Equal(t, 1, cov.MetCount)
	assert.False(t, cov.Keywords[0].OverDensity)
	assert.Empty(t, cov.Warnings)
}

func repeatWords(w string, n int) string {
	out := ""
	for range n {
		out += w + " "
	}
	return out
}
