package analytics

import (
	"sort"

	"regpulse/pkg/contracts/domain"
)

// counter tallies occurrences while remembering first-seen insertion order,
// so ranked output is deterministic even when counts tie.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) Add(key string) {
	if _, seen := c.counts[key]; !seen {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// Keys returns all keys in first-seen order.
func (c *counter) Keys() []string {
	return append([]string(nil), c.order...)
}

// SortedKeys returns all keys in lexical order.
func (c *counter) SortedKeys() []string {
	keys := c.Keys()
	sort.Strings(keys)
	return keys
}

// Ranked returns (key, count) pairs sorted by count descending. Ties keep
// first-seen order. limit <= 0 means no limit.
func (c *counter) Ranked(limit int) []domain.CategoryCount {
	out := make([]domain.CategoryCount, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, domain.CategoryCount{Name: key, Count: c.counts[key]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Top returns the highest-ranked key and its count, or ("", 0) when empty.
func (c *counter) Top() (string, int) {
	ranked := c.Ranked(1)
	if len(ranked) == 0 {
		return "", 0
	}
	return ranked[0].Name, ranked[0].Count
}
