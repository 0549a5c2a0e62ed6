package search

import (
	"context"
	"slices"

	"linequery/internal/dataset"
	"linequery/internal/trie"
)

// Linear compares every trimmed line with the query in file order.
func Linear(ctx context.Context, path, query string) (bool, error) {
	if done, err := emptyQuery(path, query); done {
		return false, err
	}
	found := false
	err := dataset.EachTrimmed(ctx, path, func(line string) bool {
		found = line == query
		return !found
	})
	return found, err
}

// HashSet loads all trimmed lines into a set, then tests membership.
func HashSet(ctx context.Context, path, query string) (bool, error) {
	if done, err := emptyQuery(path, query); done {
		return false, err
	}
	set := make(map[string]struct{})
	err := dataset.EachTrimmed(ctx, path, func(line string) bool {
		set[line] = struct{}{}
		return true
	})
	if err != nil {
		return false, err
	}
	_, ok := set[query]
	return ok, nil
}

// Binary sorts the trimmed lines and binary searches for the query.
func Binary(ctx context.Context, path, query string) (bool, error) {
	if done, err := emptyQuery(path, query); done {
		return false, err
	}
	lines, err := dataset.Lines(ctx, path)
	if err != nil {
		return false, err
	}
	slices.Sort(lines)
	_, ok := slices.BinarySearch(lines, query)
	return ok, nil
}

// TrieScan inserts every trimmed line into a prefix tree and looks the
// query up by its end-of-word marker.
func TrieScan(ctx context.Context, path, query string) (bool, error) {
	if done, err := emptyQuery(path, query); done {
		return false, err
	}
	t := trie.New()
	err := dataset.EachTrimmed(ctx, path, func(line string) bool {
		t.Insert(line)
		return true
	})
	if err != nil {
		return false, err
	}
	return t.Contains(query), nil
}
