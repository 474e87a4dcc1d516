package text

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "abc", Truncate("abc", 0))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
}

func TestCutKeepsRunes(t *testing.T) {
	s := "삼성전자" // 每个字 3 字节
	for max := 1; max <= len(s); max++ {
		got := Cut(s, max)
		assert.True(t, utf8.ValidString(got), "max=%d", max)
		assert.LessOrEqual(t, len(got), max)
	}
	assert.Equal(t, "삼", Cut(s, 5))
	assert.Equal(t, "", Cut(s, 2))
	assert.Equal(t, "삼성...", Truncate(s, 7))
}
