package index

import (
	"context"

	"linequery/internal/dataset"
	"linequery/internal/types"
)

// NativeSet is a plain hash set of lines exactly as read, terminator
// included.
type NativeSet struct {
	lines map[string]struct{}
}

func NewNativeSet() *NativeSet {
	return &NativeSet{lines: make(map[string]struct{})}
}

func (s *NativeSet) load(ctx context.Context, path string) error {
	return dataset.EachLine(ctx, path, func(line string) bool {
		s.lines[line] = struct{}{}
		return true
	})
}

func (s *NativeSet) Kind() types.BufferKind { return types.LanguageNativeSet }

func (s *NativeSet) Contains(query string) bool {
	if query == "" {
		return false
	}
	for _, stored := range asRead(query) {
		if _, ok := s.lines[stored]; ok {
			return true
		}
	}
	return false
}

func (s *NativeSet) Len() int { return len(s.lines) }

func (s *NativeSet) InProcess() bool { return true }

func (s *NativeSet) Close() error {
	clear(s.lines)
	return nil
}

func (s *NativeSet) sealed() {}
