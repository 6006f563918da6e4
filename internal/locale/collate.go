// Package locale wires golang.org/x/text/collate into the sort phase's
// Text comparisons (§4.9: "locale-sensitive collation applies to Text
// values only"). It is the one place the engine's locale parameter (§9:
// "carried as a parameter into the sort and format phases only") actually
// reaches a comparison.
package locale

import (
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collator compares Text values under a specific locale.
type Collator struct {
	col *collate.Collator
}

var (
	mu    sync.Mutex
	cache = make(map[string]*Collator)
)

// For returns the cached Collator for tag, building one on first use —
// grounded on the teacher's schema/metadata caches (internal/schema_metadata_cache.go)
// which memoize expensive-to-build lookups keyed by a string.
func For(tag language.Tag) *Collator {
	key := tag.String()
	mu.Lock()
	defer mu.Unlock()
	if c, ok := cache[key]; ok {
		return c
	}
	c := &Collator{col: collate.New(tag)}
	cache[key] = c
	return c
}

// CompareText orders a and b under this collator's locale.
func (c *Collator) CompareText(a, b string) int {
	return c.col.CompareString(a, b)
}
