package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKMPTable(t *testing.T) {
	assert.Equal(t, []int{0, 0, 1, 2, 0}, kmpTable("ababc"))
	assert.Equal(t, []int{0, 1, 2, 3}, kmpTable("aaaa"))
}

func TestMatchersAsSubstringSearch(t *testing.T) {
	cases := []struct {
		text, pattern string
		want          bool
	}{
		{"hello world", "world", true},
		{"hello world", "word", false},
		{"aaab", "aab", true},
		{"abc", "abc", true},
		{"ab", "abc", false},
		{"abc", "", false},
	}
	for _, tc := range cases {
		skip := skipTable(tc.pattern)
		assert.Equal(t, tc.want, kmpSearch(tc.text, tc.pattern, kmpTable(tc.pattern)), "kmp %q in %q", tc.pattern, tc.text)
		assert.Equal(t, tc.want, boyerMooreSearch(tc.text, tc.pattern, &skip), "bm %q in %q", tc.pattern, tc.text)
		assert.Equal(t, tc.want, rabinKarpSearch(tc.text, tc.pattern, rkHash(tc.pattern)), "rk %q in %q", tc.pattern, tc.text)
	}
}

// A hash hit alone is not a match.
func TestRabinKarpConfirmsHashHits(t *testing.T) {
	assert.False(t, rabinKarpSearch("abd", "abc", rkHash("abd")))
}
