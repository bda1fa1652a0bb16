package truncate

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextIdentityBelowBudget(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
	}{
		{"empty", "", 100},
		{"short sentence", "revenue grew 12% year over year", 100},
		{"exactly at budget", "abcde", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated := Text(tt.input, tt.maxLen)
			assert.Equal(t, tt.input, got)
			assert.False(t, truncated)
		})
	}
}

func TestTextCutsOnWhitespaceBoundary(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"mid-word cut avoided", "hello world again", 8, "hello"},
		{"boundary exactly at budget", "ab cd ef", 5, "ab cd"},
		{"whitespace just after budget", "hello world", 5, "hello"},
		{"run of spaces trimmed", "abc   xyz", 5, "abc"},
		{"newline is a boundary", "first page\nsecond page", 12, "first page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated := Text(tt.input, tt.maxLen)
			assert.Equal(t, tt.want, got)
			assert.True(t, truncated)
			assert.LessOrEqual(t, len(got), tt.maxLen)
		})
	}
}

func TestTextHardCutWithoutWhitespace(t *testing.T) {
	got, truncated := Text("0123456789", 4)
	assert.Equal(t, "0123", got)
	assert.True(t, truncated)
}

func TestTextHardCutKeepsRunesIntact(t *testing.T) {
	// 3-byte runes; a budget of 4 bytes falls inside the second rune.
	got, truncated := Text("€€€", 4)
	assert.True(t, truncated)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "€", got)
}

func TestTextNeverEndsMidWord(t *testing.T) {
	input := strings.Repeat("lorem ipsum dolor sit amet ", 50)
	for _, maxLen := range []int{10, 37, 100, 333} {
		got, truncated := Text(input, maxLen)
		require.True(t, truncated)
		require.LessOrEqual(t, len(got), maxLen)
		// the byte after the cut must not extend a word
		rest := input[len(got):]
		r, _ := utf8.DecodeRuneInString(rest)
		assert.True(t, unicode.IsSpace(r), "budget %d cut mid-word: %q | %q", maxLen, got, rest[:1])
	}
}

func TestChunksCoverWholeText(t *testing.T) {
	input := "one two three four five six seven eight nine ten"
	chunks, discarded := Chunks(input, 18, 10)
	require.NotEmpty(t, chunks)
	assert.False(t, discarded)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 18)
		assert.Equal(t, strings.TrimSpace(c), c)
	}
	assert.Equal(t, strings.Fields(input), strings.Fields(strings.Join(chunks, " ")))
}

func TestChunksRespectLimit(t *testing.T) {
	input := strings.Repeat("word ", 100)
	chunks, discarded := Chunks(input, 20, 2)
	assert.Len(t, chunks, 2)
	assert.True(t, discarded)
}

func TestChunksEmptyInput(t *testing.T) {
	chunks, discarded := Chunks("", 100, 3)
	assert.Empty(t, chunks)
	assert.False(t, discarded)
}

func TestChunksSingleBelowBudget(t *testing.T) {
	chunks, discarded := Chunks("short text", 100, 3)
	assert.Equal(t, []string{"short text"}, chunks)
	assert.False(t, discarded)
}
