// Package search holds the catalog of interchangeable strategies that
// answer whether a query equals a line of a dataset file.
//
// Every strategy compares the query against dataset lines trimmed of
// surrounding whitespace, and every strategy agrees on the result for the
// same file and query. An empty query is never found.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"linequery/internal/dataset"
)

// Func reports whether query equals a trimmed line of the dataset at path.
// A missing dataset yields an error wrapping dataset.ErrNotFound; other
// I/O failures yield a *dataset.SearchError.
type Func func(ctx context.Context, path, query string) (bool, error)

var catalog = map[string]Func{
	"linear":      Linear,
	"hashset":     HashSet,
	"mmap":        MemoryMapped,
	"binary":      Binary,
	"grep":        Grep,
	"trie":        TrieScan,
	"kmp":         KMP,
	"boyer-moore": BoyerMoore,
	"rabin-karp":  RabinKarp,
}

// DefaultStrategy is used when no strategy is configured.
const DefaultStrategy = "linear"

// Lookup returns the strategy registered under name.
func Lookup(name string) (Func, error) {
	fn, ok := catalog[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown search strategy %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return fn, nil
}

// Names lists the registered strategies in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// emptyQuery settles the empty query up front: never found, but a missing
// dataset is still reported.
func emptyQuery(path, query string) (bool, error) {
	if query != "" {
		return false, nil
	}
	return true, dataset.Exists(path)
}
