package index

import (
	"context"
	"encoding/binary"
	"slices"

	"linequery/internal/dataset"
	"linequery/internal/types"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/zeebo/blake3"
)

// ExistSet is a compact existence set. BLAKE3 fingerprints of every line
// live in a roaring bitmap that rejects most misses without touching the
// lines; hits are confirmed against a sorted, deduplicated line slice.
// Lines are stored without their terminator.
type ExistSet struct {
	fingerprints *roaring64.Bitmap
	lines        []string
}

// NewExistSet creates an empty ExistSet.
func NewExistSet() *ExistSet {
	return &ExistSet{fingerprints: roaring64.NewBitmap()}
}

// fingerprint returns the first 8 bytes of the BLAKE3 digest of s.
func fingerprint(s string) uint64 {
	sum := blake3.Sum256([]byte(s))
	return binary.LittleEndian.Uint64(sum[:8])
}

// load replaces the set's contents with the lines of the dataset at path.
func (s *ExistSet) load(ctx context.Context, path string) error {
	var lines []string
	err := dataset.EachLine(ctx, path, func(line string) bool {
		lines = append(lines, dataset.StripTerminator(line))
		return true
	})
	if err != nil {
		return err
	}
	slices.Sort(lines)
	lines = slices.Compact(lines)

	fps := roaring64.NewBitmap()
	for _, line := range lines {
		fps.Add(fingerprint(line))
	}
	fps.RunOptimize()

	s.fingerprints = fps
	s.lines = lines
	return nil
}

func (s *ExistSet) Kind() types.BufferKind { return types.NativeExistSet }

func (s *ExistSet) Contains(query string) bool {
	if query == "" || !s.fingerprints.Contains(fingerprint(query)) {
		return false
	}
	_, ok := slices.BinarySearch(s.lines, query)
	return ok
}

func (s *ExistSet) Len() int { return len(s.lines) }

func (s *ExistSet) InProcess() bool { return true }

func (s *ExistSet) Close() error {
	s.fingerprints = roaring64.NewBitmap()
	s.lines = nil
	return nil
}

func (s *ExistSet) sealed() {}
