package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"São Paulo", "sao paulo"},
		{"  SAO   PAULO ", "sao paulo"},
		{"Carapicuíba", "carapicuiba"},
		{"Taboão da Serra", "taboao da serra"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Fold(tt.input))
		})
	}
}

func TestEqualFold(t *testing.T) {
	assert.True(t, EqualFold("Santo André", "santo andre"))
	assert.False(t, EqualFold("Santo André", "Santo Amaro"))
}

func TestDedupeFolded(t *testing.T) {
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
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "trims whitespace",
			input:    []string{"  Osasco  ", "Diadema  "},
			expected: []string{"Osasco", "Diadema"},
		},
		{
			name:     "first spelling wins",
			input:    []string{"São Paulo", "sao paulo", "SAO PAULO"},
			expected: []string{"São Paulo"},
		},
		{
			name:     "removes empty strings",
			input:    []string{"Barueri", "", "  ", "Osasco"},
			expected: []string{"Barueri", "Osasco"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeFolded(tt.input))
		})
	}
}
