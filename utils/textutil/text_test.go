package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple title",
			input:    "Hello World",
			expected: "hello-world",
		},
		{
			name:     "leading and trailing whitespace",
			input:    "  Breaking News  ",
			expected: "breaking-news",
		},
		{
			name:     "accents folded",
			input:    "Über die Küste",
			expected: "uber-die-kuste",
		},
		{
			name:     "punctuation removed",
			input:    "What's next? AI, probably!",
			expected: "whats-next-ai-probably",
		},
		{
			name:     "dash runs collapsed",
			input:    "one -- two --- three",
			expected: "one-two-three",
		},
		{
			name:     "separator characters become dashes",
			input:    "a/b_c,d:e",
			expected: "a-b-c-d-e",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Run("short string unchanged", func(t *testing.T) {
		assert.Equal(t, "short", Truncate("short", 40))
	})

	t.Run("exact length unchanged", func(t *testing.T) {
		assert.Equal(t, "12345", Truncate("12345", 5))
	})

	t.Run("cuts at word boundary with ellipsis", func(t *testing.T) {
		result := Truncate("The quick brown fox jumps", 11)

		require.True(t, strings.HasSuffix(result, "…"))
		assert.Equal(t, "The quick…", result)
		assert.LessOrEqual(t, utf8.RuneCountInString(result), 11)
	})

	t.Run("never cuts mid word", func(t *testing.T) {
		result := Truncate("alpha beta gamma delta", 14)

		trimmed := strings.TrimSuffix(result, "…")
		assert.True(t, strings.HasSuffix("alpha beta gamma delta", trimmed) ||
			strings.Contains("alpha beta gamma delta ", trimmed+" "))
	})

	t.Run("limit of zero collapses to the ellipsis", func(t *testing.T) {
		assert.Equal(t, "…", Truncate("overflowing", 0))
	})

	t.Run("limit of one collapses to the ellipsis", func(t *testing.T) {
		assert.Equal(t, "…", Truncate("overflowing", 1))
	})

	t.Run("no space falls back to hard cut", func(t *testing.T) {
		result := Truncate("abcdefghijklmnop", 10)

		assert.Equal(t, "abcdefgh…", result)
		assert.LessOrEqual(t, utf8.RuneCountInString(result), 10)
	})
}
