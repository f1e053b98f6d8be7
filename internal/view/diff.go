package view

import "sort"

type OpKind string

const (
	OpRemove OpKind = "remove"
	OpInsert OpKind = "insert"
	OpReset  OpKind = "reset"
)

// Op is one structural edit on a displayed list. Index is the target
// position of an insert, counted after all removes and earlier inserts. A
// remove drops the last entry carrying ID.
type Op struct {
	Kind  OpKind `json:"op"`
	ID    int64  `json:"id,omitempty"`
	Index int    `json:"index"`
}

// Diff computes the edit script turning prev into next. All removes come
// first, in prev order, followed by inserts in ascending index order.
//
// Ids present in both sequences are left untouched as long as their
// relative order is unchanged. If some survivors were reordered, the
// longest run that keeps its order stays in place and the others are
// removed and reinserted. Repeated ids in prev are removed after their
// first occurrence.
func Diff(prev, next []int64) []Op {
	nextPos := make(map[int64]int, len(next))
	for i, id := range next {
		nextPos[id] = i
	}

	// Positions in next of the survivors, in prev order. Only the first
	// copy of a repeated id can survive.
	var survivors []int64
	var positions []int
	seen := make(map[int64]struct{}, len(prev))
	for _, id := range prev {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := nextPos[id]; ok {
			survivors = append(survivors, id)
			positions = append(positions, p)
		}
	}

	keep := make(map[int64]struct{}, len(survivors))
	for _, i := range longestIncreasing(positions) {
		keep[survivors[i]] = struct{}{}
	}

	var ops []Op
	clear(seen)
	for _, id := range prev {
		_, dup := seen[id]
		seen[id] = struct{}{}
		if _, ok := keep[id]; !ok || dup {
			ops = append(ops, Op{Kind: OpRemove, ID: id})
		}
	}
	for i, id := range next {
		if _, ok := keep[id]; !ok {
			ops = append(ops, Op{Kind: OpInsert, ID: id, Index: i})
		}
	}
	return ops
}

// Apply replays ops on ids and returns the resulting sequence.
func Apply(ids []int64, ops []Op) []int64 {
	out := append([]int64(nil), ids...)
	for _, op := range ops {
		switch op.Kind {
		case OpReset:
			out = out[:0]
		case OpRemove:
			for i := len(out) - 1; i >= 0; i-- {
				if out[i] == op.ID {
					out = append(out[:i], out[i+1:]...)
					break
				}
			}
		case OpInsert:
			idx := min(max(op.Index, 0), len(out))
			out = append(out, 0)
			copy(out[idx+1:], out[idx:])
			out[idx] = op.ID
		}
	}
	return out
}

// longestIncreasing returns the indexes into seq of one longest strictly
// increasing subsequence, in ascending order.
func longestIncreasing(seq []int) []int {
	if len(seq) == 0 {
		return nil
	}
	// tails[k] is the index in seq of the smallest tail of an increasing
	// run of length k+1.
	tails := make([]int, 0, len(seq))
	parent := make([]int, len(seq))
	for i, v := range seq {
		k := sort.Search(len(tails), func(j int) bool { return seq[tails[j]] >= v })
		if k > 0 {
			parent[i] = tails[k-1]
		} else {
			parent[i] = -1
		}
		if k == len(tails) {
			tails = append(tails, i)
		} else {
			tails[k] = i
		}
	}

	out := make([]int, len(tails))
	for i, k := tails[len(tails)-1], len(tails)-1; k >= 0; i, k = parent[i], k-1 {
		out[k] = i
	}
	return out
}
