package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeNames(t *testing.T) {
	tests := []struct {
		name     string
		input    [][]string
		expected []string
	}{
		{
			name:     "no lists",
			input:    nil,
			expected: nil,
		},
		{
			name:     "only blanks",
			input:    [][]string{{"", "  "}},
			expected: nil,
		},
		{
			name:     "config list with spaces after commas",
			input:    [][]string{{"fecha_actualizacion"}, {" version", " Cargo "}},
			expected: []string{"fecha_actualizacion", "version", "cargo"},
		},
		{
			name:     "repeats across lists keep first position",
			input:    [][]string{{"b", "a"}, {"A", "c", "b"}},
			expected: []string{"b", "a", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MergeNames(tt.input...))
		})
	}
}
