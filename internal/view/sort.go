// Package view maps the transaction collection onto a displayed list with
// minimal structural change.
package view

import (
	"cmp"
	"slices"

	"spendlog/internal/core"
)

// compareDisplay orders newest date first, then most recently entered,
// then highest id. Undated legacy records sort last.
func compareDisplay(a, b core.Transaction) int {
	if c := b.Date.Time.Compare(a.Date.Time); c != 0 {
		return c
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// SortForDisplay returns a display-ordered copy of txs. The sort is stable,
// so repeated sorts of an unchanged collection never reorder it.
func SortForDisplay(txs []core.Transaction) []core.Transaction {
	out := slices.Clone(txs)
	slices.SortStableFunc(out, compareDisplay)
	return out
}

// IDs extracts ids in order.
func IDs(txs []core.Transaction) []int64 {
	ids := make([]int64, len(txs))
	for i, t := range txs {
		ids[i] = t.ID
	}
	return ids
}
