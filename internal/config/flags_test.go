package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitDomains(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
		{
			name:     "single domain",
			input:    "mail.example.com",
			expected: []string{"mail.example.com"},
		},
		{
			name:     "multiple domains",
			input:    "mail.example.com,alias.example.org",
			expected: []string{"mail.example.com", "alias.example.org"},
		},
		{
			name:     "whitespace around entries",
			input:    " mail.example.com , alias.example.org ",
			expected: []string{"mail.example.com", "alias.example.org"},
		},
		{
			name:     "empty entries dropped",
			input:    ",,mail.example.com,,",
			expected: []string{"mail.example.com"},
		},
		{
			name:     "only separators",
			input:    ",,,",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitDomains(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
