// Package trie implements a byte-keyed prefix tree with explicit
// end-of-word markers. Words are compared byte for byte, so invalid UTF-8
// never collapses into U+FFFD.
package trie

type node struct {
	children map[byte]*node
	end      bool
}

// Trie is not safe for concurrent mutation. Once built it may be read
// from any number of goroutines.
type Trie struct {
	root  node
	words int
}

func New() *Trie {
	return &Trie{}
}

// Insert adds word. Inserting a word twice is a no-op.
func (t *Trie) Insert(word string) {
	n := &t.root
	for i := 0; i < len(word); i++ {
		b := word[i]
		if n.children == nil {
			n.children = make(map[byte]*node)
		}
		child, ok := n.children[b]
		if !ok {
			child = &node{}
			n.children[b] = child
		}
		n = child
	}
	if !n.end {
		n.end = true
		t.words++
	}
}

// Contains reports whether word was inserted as a complete word.
// Reaching a node on a longer word's path is not enough.
func (t *Trie) Contains(word string) bool {
	n := &t.root
	for i := 0; i < len(word); i++ {
		child, ok := n.children[word[i]]
		if !ok {
			return false
		}
		n = child
	}
	return n.end
}

// HasPrefix reports whether any inserted word starts with prefix.
func (t *Trie) HasPrefix(prefix string) bool {
	n := &t.root
	for i := 0; i < len(prefix); i++ {
		child, ok := n.children[prefix[i]]
		if !ok {
			return false
		}
		n = child
	}
	return n.end || len(n.children) > 0
}

// Len returns the number of distinct words.
func (t *Trie) Len() int { return t.words }
