package dedupe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/corpradar/backend/internal/models"
	"github.com/corpradar/backend/internal/processing"
)

// SortOrder controls the order of deduplicated results.
type SortOrder string

const (
	SortRelevance SortOrder = "relevance"
	SortDate      SortOrder = "date"
)

// ParseSortOrder accepts relevance/date and the upstream aliases sim/date.
// Empty means relevance.
func ParseSortOrder(raw string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "relevance", "sim":
		return SortRelevance, nil
	case "date":
		return SortDate, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", raw)
	}
}

// Engine collapses duplicate news items into one representative per story.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	strategy Strategy
}

// NewEngine builds an engine; a nil strategy means Exact.
func NewEngine(strategy Strategy) *Engine {
	if strategy == nil {
		strategy = Exact{}
	}
	return &Engine{strategy: strategy}
}

// Deduplicate normalizes items, groups duplicates, keeps the most recent item of
// each group and orders the representatives. Diagnostics list the fields that
// could not be parsed; they never abort the call.
func (e *Engine) Deduplicate(items []models.RawNewsItem, order SortOrder) ([]models.NormalizedNewsItem, []models.Diagnostic) {
	if len(items) == 0 {
		return []models.NormalizedNewsItem{}, nil
	}

	normalized := make([]models.NormalizedNewsItem, len(items))
	var diags []models.Diagnostic
	for i, item := range items {
		n, d := processing.Normalize(item)
		normalized[i] = n
		diags = append(diags, d...)
	}

	groups := e.group(normalized)

	// groups are already in first-seen order
	out := make([]models.NormalizedNewsItem, 0, len(groups))
	for _, members := range groups {
		out = append(out, normalized[pick(normalized, members)])
	}

	if order == SortDate {
		sort.SliceStable(out, func(i, j int) bool {
			return newer(out[i], out[j])
		})
	}

	return out, diags
}

// group partitions item indexes; each group lists members in input order and
// groups are ordered by their first member.
func (e *Engine) group(items []models.NormalizedNewsItem) [][]int {
	parent := make([]int, len(items))
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// lower index stays root so a group is identified by its first member
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	if keyer, ok := e.strategy.(Keyer); ok {
		owner := make(map[string]int)
		for i, item := range items {
			for _, key := range keyer.Keys(item) {
				if j, seen := owner[key]; seen {
					union(j, i)
					continue
				}
				owner[key] = i
			}
		}
	} else {
		for i := range items {
			for j := 0; j < i; j++ {
				if e.strategy.AreDuplicates(items[j], items[i]) {
					union(j, i)
				}
			}
		}
	}

	index := make(map[int]int)
	var groups [][]int
	for i := range items {
		root := find(i)
		g, ok := index[root]
		if !ok {
			g = len(groups)
			index[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// pick returns the index of the member with the latest parsable date; ties and undated
// groups resolve to the earliest member.
func pick(items []models.NormalizedNewsItem, members []int) int {
	best := members[0]
	for _, m := range members[1:] {
		if newer(items[m], items[best]) {
			best = m
		}
	}
	return best
}

// newer reports whether a is strictly more recent than b. Unparsable dates are
// the oldest possible value.
func newer(a, b models.NormalizedNewsItem) bool {
	switch {
	case a.PublishedAt == nil:
		return false
	case b.PublishedAt == nil:
		return true
	default:
		return a.PublishedAt.After(*b.PublishedAt)
	}
}
