package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	cleaner := NewPhoneCleaner()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"cell annotation", "(802) 555-1234 (C)", "(802) 555-1234"},
		{"home annotation", "555-1234 (H)", "555-1234"},
		{"word annotation", "555-1234 (cell)", "555-1234"},
		{"no annotation", "(802) 555-1234", "(802) 555-1234"},
		{"plain number", "555-1234", "555-1234"},
		{"annotation without space", "555-1234(W)", "555-1234"},
		{"only a parenthetical keeps original", "(802)", "(802)"},
		{"whitespace trimmed", "  555-1234  ", "555-1234"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cleaner.Clean(tt.input))
		})
	}
}

func TestClean_StripsOnlyOneTrailingAnnotation(t *testing.T) {
	cleaner := NewPhoneCleaner()

	// Only the final parenthetical is an annotation; the leading one is
	// the area code.
	assert.Equal(t, "(802) 555-1234", cleaner.Clean("(802) 555-1234 (C)"))
}

func TestHasAnnotation(t *testing.T) {
	cleaner := NewPhoneCleaner()

	assert.True(t, cleaner.HasAnnotation("555-1234 (C)"))
	assert.False(t, cleaner.HasAnnotation("(802) 555-1234"))
	assert.False(t, cleaner.HasAnnotation(""))
}
