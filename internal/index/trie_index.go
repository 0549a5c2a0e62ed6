package index

import (
	"context"

	"linequery/internal/dataset"
	"linequery/internal/trie"
	"linequery/internal/types"
)

// TrieIndex stores lines exactly as read in a prefix tree.
type TrieIndex struct {
	t *trie.Trie
}

func NewTrieIndex() *TrieIndex {
	return &TrieIndex{t: trie.New()}
}

func (ti *TrieIndex) load(ctx context.Context, path string) error {
	return dataset.EachLine(ctx, path, func(line string) bool {
		ti.t.Insert(line)
		return true
	})
}

func (ti *TrieIndex) Kind() types.BufferKind { return types.PrefixTree }

func (ti *TrieIndex) Contains(query string) bool {
	if query == "" {
		return false
	}
	for _, stored := range asRead(query) {
		if ti.t.Contains(stored) {
			return true
		}
	}
	return false
}

func (ti *TrieIndex) Len() int { return ti.t.Len() }

func (ti *TrieIndex) InProcess() bool { return true }

func (ti *TrieIndex) Close() error {
	ti.t = trie.New()
	return nil
}

func (ti *TrieIndex) sealed() {}
