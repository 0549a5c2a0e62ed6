package search

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"linequery/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDataset(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.txt")
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// strategies returns the catalog, minus grep when it is not installed.
func strategies(t *testing.T) map[string]Func {
	t.Helper()
	out := make(map[string]Func, len(catalog))
	for name, fn := range catalog {
		out[name] = fn
	}
	if _, err := exec.LookPath(grepBinary); err != nil {
		t.Logf("grep not available, skipping it: %v", err)
		delete(out, "grep")
	}
	return out
}

func TestLookup(t *testing.T) {
	fn, err := Lookup(" Linear ")
	require.NoError(t, err)
	assert.NotNil(t, fn)

	_, err = Lookup("bogo")
	assert.ErrorContains(t, err, "unknown search strategy")
	assert.Len(t, Names(), 9)
}

func TestExampleScenario(t *testing.T) {
	path := writeDataset(t, "apple", "banana", "cherry")
	ctx := context.Background()

	for name, fn := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			found, err := fn(ctx, path, "banana")
			require.NoError(t, err)
			assert.True(t, found)

			found, err = fn(ctx, path, "kiwi")
			require.NoError(t, err)
			assert.False(t, found)

			found, err = fn(ctx, path, "ban")
			require.NoError(t, err)
			assert.False(t, found, "prefix of a line must not match")

			found, err = fn(ctx, path, "bananas")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestEmptyDataset(t *testing.T) {
	path := writeDataset(t)
	for name, fn := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			found, err := fn(context.Background(), path, "anything")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

// An empty query is never found, even against a dataset with blank lines.
func TestEmptyQueryAgainstBlankLine(t *testing.T) {
	path := writeDataset(t, "apple", "", "cherry")
	for name, fn := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			found, err := fn(context.Background(), path, "")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestMissingDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.txt")
	for name, fn := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			_, err := fn(context.Background(), path, "apple")
			assert.ErrorIs(t, err, dataset.ErrNotFound)

			_, err = fn(context.Background(), path, "")
			assert.ErrorIs(t, err, dataset.ErrNotFound)
		})
	}
}

func TestCancelledContext(t *testing.T) {
	path := writeDataset(t, "apple")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, name := range []string{"linear", "hashset", "binary", "trie", "kmp", "boyer-moore", "rabin-karp", "mmap"} {
		_, err := catalog[name](ctx, path, "zzz")
		assert.ErrorIs(t, err, context.Canceled, name)
	}
}

func TestTrimmedLinesMatch(t *testing.T) {
	path := writeDataset(t, "  apple  ", "banana\r", "\tcherry")
	for name, fn := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			for _, q := range []string{"apple", "banana", "cherry"} {
				found, err := fn(context.Background(), path, q)
				require.NoError(t, err)
				assert.True(t, found, q)
			}
		})
	}
}

func TestCRLFDatasetAgrees(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crlf.txt")
	require.NoError(t, os.WriteFile(path, []byte("apple\r\nbanana\r\n"), 0o644))
	for name, fn := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			found, err := fn(context.Background(), path, "apple")
			require.NoError(t, err)
			assert.True(t, found)

			found, err = fn(context.Background(), path, "banan")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestBinaryIgnoresFileOrder(t *testing.T) {
	sorted := writeDataset(t, "a", "b", "c", "d", "e")
	shuffled := writeDataset(t, "d", "a", "e", "c", "b")
	for _, q := range []string{"a", "c", "e", "f", "0"} {
		want, err := Binary(context.Background(), sorted, q)
		require.NoError(t, err)
		got, err := Binary(context.Background(), shuffled, q)
		require.NoError(t, err)
		assert.Equal(t, want, got, q)
	}
}

func TestMemoryMappedZeroLengthFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	found, err := MemoryMapped(context.Background(), path, "apple")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGrepNewlineRules(t *testing.T) {
	if _, err := exec.LookPath(grepBinary); err != nil {
		t.Skip("grep not installed")
	}
	path := writeDataset(t, "apple", "", "banana")
	ctx := context.Background()

	found, err := Grep(ctx, path, "apple")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = Grep(ctx, path, "apple\n")
	require.NoError(t, err)
	assert.False(t, found, "a query ending in newline is never found")

	found, err = Grep(ctx, path, "\n\n")
	require.NoError(t, err)
	assert.False(t, found, "an all-newline query is not found")

	found, err = Grep(ctx, path, "apple\nbanana")
	require.NoError(t, err)
	assert.False(t, found, "inner newline must not turn into two patterns")

	found, err = Grep(ctx, path, "-v")
	require.NoError(t, err)
	assert.False(t, found, "queries are never parsed as flags")
}

func TestGrepMissingBinary(t *testing.T) {
	path := writeDataset(t, "apple")
	old := grepBinary
	grepBinary = "definitely-not-a-grep-binary"
	defer func() { grepBinary = old }()

	_, err := Grep(context.Background(), path, "apple")
	var se *dataset.SearchError
	assert.ErrorAs(t, err, &se)
}

func TestCompressedDatasetAgrees(t *testing.T) {
	lines := []string{"apple", "banana", "cherry", "date"}
	plain := writeDataset(t, lines...)
	raw, err := os.ReadFile(plain)
	require.NoError(t, err)
	compressed := filepath.Join(t.TempDir(), "data.txt.zst")
	require.NoError(t, os.WriteFile(compressed, dataset.CompressBytes(raw), 0o644))

	for name, fn := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			for _, q := range []string{"apple", "date", "fig", "cherr"} {
				want, err := fn(context.Background(), plain, q)
				require.NoError(t, err)
				got, err := fn(context.Background(), compressed, q)
				require.NoError(t, err)
				assert.Equal(t, want, got, q)
			}
		})
	}
}

// Every strategy must agree with every other on random datasets.
func TestCrossStrategyEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abcxyzé;-_ 0")
	randWord := func() string {
		n := 1 + rng.Intn(6)
		var b strings.Builder
		for i := 0; i < n; i++ {
			b.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		return strings.TrimSpace(b.String())
	}

	fns := strategies(t)
	for round := 0; round < 10; round++ {
		lines := make([]string, 50+rng.Intn(50))
		for i := range lines {
			lines[i] = randWord()
		}
		// Invalid UTF-8 must be compared byte for byte, never as U+FFFD.
		lines = append(lines, "ab\xffcd", "  padded\r")
		path := writeDataset(t, lines...)

		queries := []string{lines[0], lines[len(lines)-3], "ab\xffcd", "ab\uFFFDcd", "padded"}
		if round == 0 {
			found, err := Linear(context.Background(), path, "ab\uFFFDcd")
			require.NoError(t, err)
			require.False(t, found)
			found, err = Linear(context.Background(), path, "ab\xffcd")
			require.NoError(t, err)
			require.True(t, found)
		}
		for i := 0; i < 20; i++ {
			queries = append(queries, randWord())
		}
		for _, q := range queries {
			oracle, err := Linear(context.Background(), path, q)
			require.NoError(t, err)
			for name, fn := range fns {
				got, err := fn(context.Background(), path, q)
				require.NoError(t, err, name)
				assert.Equal(t, oracle, got, fmt.Sprintf("round %d strategy %s query %q", round, name, q))
			}
		}
	}
}
