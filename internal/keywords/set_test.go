package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSetDedupAcrossTiers(t *testing.T) {
	set := NewSet([]string{"Python", "AWS"}, []string{"python", "Docker"}, []string{"docker", "k8s", " "})

	assert.Equal(t, []string{"python", "aws"}, set.High)
	assert.Equal(t, []string{"docker"}, set.Medium)
	assert.Equal(t, []string{"k8s"}, set.Low)
	assert.Equal(t, []string{"python", "aws", "docker", "k8s"}, set.All)

	tier, ok := set.TierOf("Docker")
	require.True(t, ok)
	assert.Equal(t, TierMedium, tier)

	_, ok = set.TierOf("rust")
	assert.False(t, ok)
}

func TestSetEachOrder(t *testing.T) {
	set := NewSet([]string{"a1"}, []string{"b1"}, []string{"c1"})

	var got []string
	var tiers []Tier
	set.Each(func(kw string, tier Tier) {
		got = append(got, kw)
		tiers = append(tiers, tier)
	})

	assert.Equal(t, []string{"a1", "b1", "c1"}, got)
	assert.Equal(t, []Tier{TierHigh, TierMedium, TierLow}, tiers)
}

func TestTargets(t *testing.T) {
	targets := DefaultTargets()

	assert.Equal(t, Range{Min: 3, Max: 5}, targets.For(TierHigh))
	assert.Equal(t, Range{Min: 3, Max: 5}, targets.For(TierMedium))
	assert.Equal(t, Range{Min: 1, Max: 2}, targets.For(TierLow))
	assert.NoError(t, targets.Validate())

	targets.Low = Range{Min: 3, Max: 1}
	assert.Error(t, targets.Validate())
}

func TestDictionary(t *testing.T) {
	d := DefaultDictionary()

	verb, ok := d.ActionVerb("built")
	require.True(t, ok)
	assert.Equal(t, "Built", verb)
	assert.True(t, d.IsTechnical("Kubernetes"))
	assert.True(t, d.IsTechnical("machine learning"))
	assert.False(t, d.IsTechnical("synergy"))
	assert.True(t, d.IsStopWord("experience"))
	assert.True(t, d.IsSoftSkill("teamwork"))

	assert.Equal(t, d.Fingerprint(), DefaultDictionary().Fingerprint())

	lists := d.Lists()
	lists.Technical = append(lists.Technical, "zig")
	other := NewDictionary(lists)
	assert.NotEqual(t, d.Fingerprint(), other.Fingerprint())
	assert.True(t, other.IsTechnical("ZIG"))
}
