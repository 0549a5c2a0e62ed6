package search

import (
	"context"

	"linequery/internal/dataset"
)

// The three classic matchers below only run on lines whose length equals
// the query's; on equal lengths "pattern occurs in text" is equality, so
// the pre-filter turns a substring search into a whole-line match.

// KMP runs Knuth-Morris-Pratt on every line of matching length.
func KMP(ctx context.Context, path, query string) (bool, error) {
	if done, err := emptyQuery(path, query); done {
		return false, err
	}
	table := kmpTable(query)
	return scanEqualLength(ctx, path, query, func(line string) bool {
		return kmpSearch(line, query, table)
	})
}

// BoyerMoore runs Boyer-Moore with a last-occurrence skip table on every
// line of matching length.
func BoyerMoore(ctx context.Context, path, query string) (bool, error) {
	if done, err := emptyQuery(path, query); done {
		return false, err
	}
	skip := skipTable(query)
	return scanEqualLength(ctx, path, query, func(line string) bool {
		return boyerMooreSearch(line, query, &skip)
	})
}

// RabinKarp compares rolling hashes on every line of matching length and
// confirms each hash hit with an exact comparison.
func RabinKarp(ctx context.Context, path, query string) (bool, error) {
	if done, err := emptyQuery(path, query); done {
		return false, err
	}
	want := rkHash(query)
	return scanEqualLength(ctx, path, query, func(line string) bool {
		return rabinKarpSearch(line, query, want)
	})
}

func scanEqualLength(ctx context.Context, path, query string, match func(line string) bool) (bool, error) {
	found := false
	err := dataset.EachTrimmed(ctx, path, func(line string) bool {
		if len(line) != len(query) {
			return true
		}
		found = match(line)
		return !found
	})
	return found, err
}

// kmpTable builds the failure function: table[i] is the length of the
// longest proper prefix of pattern[:i+1] that is also its suffix.
func kmpTable(pattern string) []int {
	table := make([]int, len(pattern))
	k := 0
	for i := 1; i < len(pattern); i++ {
		for k > 0 && pattern[i] != pattern[k] {
			k = table[k-1]
		}
		if pattern[i] == pattern[k] {
			k++
		}
		table[i] = k
	}
	return table
}

func kmpSearch(text, pattern string, table []int) bool {
	if len(pattern) == 0 {
		return false
	}
	j := 0
	for i := 0; i < len(text); i++ {
		for j > 0 && text[i] != pattern[j] {
			j = table[j-1]
		}
		if text[i] == pattern[j] {
			j++
		}
		if j == len(pattern) {
			return true
		}
	}
	return false
}

// skipTable holds, per byte, the shift to apply when that byte is under
// the last pattern position after a mismatch.
func skipTable(pattern string) [256]int {
	var table [256]int
	for i := range table {
		table[i] = len(pattern)
	}
	for i := 0; i < len(pattern)-1; i++ {
		table[pattern[i]] = len(pattern) - 1 - i
	}
	return table
}

func boyerMooreSearch(text, pattern string, skip *[256]int) bool {
	m := len(pattern)
	if m == 0 {
		return false
	}
	for i := m - 1; i < len(text); i += skip[text[i]] {
		j, k := m-1, i
		for j >= 0 && text[k] == pattern[j] {
			j--
			k--
		}
		if j < 0 {
			return true
		}
	}
	return false
}

const (
	rkBase = 256
	rkMod  = 1_000_000_007
)

func rkHash(s string) uint64 {
	var h uint64
	for i := 0; i < len(s); i++ {
		h = (h*rkBase + uint64(s[i])) % rkMod
	}
	return h
}

func rabinKarpSearch(text, pattern string, want uint64) bool {
	m := len(pattern)
	if m == 0 || len(text) < m {
		return false
	}
	// high is rkBase^(m-1), the weight of the byte leaving the window.
	var high uint64 = 1
	for i := 1; i < m; i++ {
		high = high * rkBase % rkMod
	}
	h := rkHash(text[:m])
	for i := 0; ; i++ {
		if h == want && text[i:i+m] == pattern {
			return true
		}
		if i+m >= len(text) {
			return false
		}
		h = (h + rkMod - uint64(text[i])*high%rkMod) % rkMod
		h = (h*rkBase + uint64(text[i+m])) % rkMod
	}
}
