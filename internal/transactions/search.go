package transactions

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Search keeps the transactions whose description, category or notes
// fuzzily contain q (case and accent insensitive), best matches first.
// Ties keep the incoming order.
func Search(items []Transaction, q string) []Transaction {
	q = strings.TrimSpace(q)
	if q == "" {
		return items
	}

	targets := make([]string, len(items))
	for i, t := range items {
		parts := []string{t.Description}
		if t.CategoryName != nil && *t.CategoryName != "" {
			parts = append(parts, *t.CategoryName)
		}
		if t.Notes != "" {
			parts = append(parts, t.Notes)
		}
		targets[i] = strings.Join(parts, " ")
	}

	ranks := fuzzy.RankFindNormalizedFold(q, targets)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	out := make([]Transaction, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, items[r.OriginalIndex])
	}
	return out
}
