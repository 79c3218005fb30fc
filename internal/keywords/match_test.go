package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountMentions(t *testing.T) {
	tests := []struct {
		name string
		text string
		term string
		want int
	}{
		{name: "case insensitive", text: "Built python-driven APIs with Python.", term: "python", want: 2},
		{name: "no match inside longer word", text: "javascript and java", term: "java", want: 1},
		{name: "symbols in term", text: "C++ and c++17", term: "c++", want: 1},
		{name: "slash term", text: "ci/cd pipelines; CI/CD", term: "ci/cd", want: 2},
		{name: "phrase", text: "Machine learning and machine-learning", term: "machine learning", want: 1},
		{name: "dotted prefix", text: "asp.net and .NET core", term: ".net", want: 1},
		{name: "empty term", text: "anything", term: " ", want: 0},
		{name: "unicode neighbour", text: "élgo go", term: "go", want: 1},
		{name: "non overlapping", text: "aa aa", term: "aa", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountMentions(tt.text, tt.term))
		})
	}
}

func TestContainsTerm(t *testing.T) {
	assert.True(t, ContainsTerm("Shipped on AWS.", "aws"))
	assert.False(t, ContainsTerm("Shipped on AWSome infra", "aws"))
}
