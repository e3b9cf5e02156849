package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "shared location collapses to one",
			input:    []string{"Moscow", "Moscow"},
			expected: []string{"Moscow"},
		},
		{
			name:     "trims and drops blanks",
			input:    []string{"  Moscow ", "Oslo", "", "  "},
			expected: []string{"Moscow", "Oslo"},
		},
		{
			name:     "first occurrence wins",
			input:    []string{"Oslo", "Moscow", "Oslo", "Lima", "Moscow"},
			expected: []string{"Oslo", "Moscow", "Lima"},
		},
		{
			name:     "preserves case",
			input:    []string{"Oslo", "oslo"},
			expected: []string{"Oslo", "oslo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"alice", "bob"}, SplitAndTrim("alice, bob,,", ","))
	assert.Empty(t, SplitAndTrim(" , ", ","))
}
