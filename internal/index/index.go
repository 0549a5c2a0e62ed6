// Package index builds the in-memory lookup structures used in buffer mode.
//
// Index is a closed set of variants, one per types.BufferKind. The variant
// is chosen once by Build; callers never inspect the concrete type.
package index

import (
	"context"
	"fmt"

	"linequery/internal/types"
)

// Index is a read-only line index built once from a dataset.
type Index interface {
	Kind() types.BufferKind
	// Contains reports whether query is stored. The empty query never is.
	Contains(query string) bool
	// Len returns the number of distinct entries.
	Len() int
	// InProcess is false for variants that must be consulted through the
	// worker pool rather than on the connection goroutine.
	InProcess() bool
	Close() error

	sealed()
}

// Build loads the dataset at path into the index selected by kind.
// NoBuffer yields a nil Index.
func Build(ctx context.Context, kind types.BufferKind, path string) (Index, error) {
	var idx interface {
		Index
		load(ctx context.Context, path string) error
	}
	switch kind {
	case types.NoBuffer:
		return nil, nil
	case types.NativeExistSet:
		idx = NewExistSet()
	case types.LanguageNativeSet:
		idx = NewNativeSet()
	case types.PrefixTree:
		idx = NewTrieIndex()
	case types.SharedProcessCache:
		idx = NewSharedCache()
	default:
		return nil, fmt.Errorf("unsupported buffer %v", kind)
	}
	if err := idx.load(ctx, path); err != nil {
		return nil, fmt.Errorf("build %s index: %w", kind, err)
	}
	return idx, nil
}

// asRead lists the stored forms a query can take in variants that keep
// lines exactly as read: terminated by "\n" or "\r\n", or unterminated on
// the last line.
func asRead(query string) [3]string {
	return [3]string{query + "\n", query + "\r\n", query}
}
