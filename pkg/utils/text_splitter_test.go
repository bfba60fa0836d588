package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		size      int
		overlap   int
		wantCount int
	}{
		{"short text is one chunk", "hello world", 50, 10, 1},
		{"empty text is one empty chunk", "", 50, 10, 1},
		{"no overlap", strings.TrimSpace(strings.Repeat("abcd ", 20)), 25, 0, 4},
		{"overlap larger than size is ignored", strings.TrimSpace(strings.Repeat("abcd ", 20)), 25, 40, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitText(tt.text, tt.size, tt.overlap)
			assert.Len(t, chunks, tt.wantCount)
			for _, c := range chunks {
				assert.LessOrEqual(t, len([]rune(c)), tt.size)
			}
		})
	}
}

func TestSplitText_KeepsWordsWhole(t *testing.T) {
	text := strings.Repeat("photosynthesis ", 30)
	for _, c := range SplitText(text, 100, 20) {
		for _, w := range strings.Fields(c) {
			assert.Equal(t, "photosynthesis", w)
		}
	}
}

func TestSplitText_OverlapRepeatsTail(t *testing.T) {
	text := strings.Repeat("x", 30)
	chunks := SplitText(text, 10, 4)
	assert.Equal(t, []string{"xxxxxxxxxx", "xxxxxxxxxx", "xxxxxxxxxx", "xxxxxxxxxx", "xxxxxx"}, chunks)
}
