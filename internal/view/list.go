package view

import (
	"fmt"
	"strings"
	"sync"

	"spendlog/internal/core"
)

// Display is the presentation layer driven by a List. Implementations
// may keep per-item transient state (selection, focus, animation); items
// that survive an incremental update are never touched.
type Display interface {
	Insert(index int, tx core.Transaction)
	Remove(id int64)
	Reset()
}

type Mode string

const (
	// ModeIncremental applies the minimal insert/remove edit script.
	ModeIncremental Mode = "incremental"
	// ModeRebuild clears the display and re-inserts every item.
	ModeRebuild Mode = "rebuild"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeIncremental:
		return ModeIncremental, nil
	case ModeRebuild:
		return ModeRebuild, nil
	default:
		return "", fmt.Errorf("invalid reconcile mode %q: must be incremental or rebuild", s)
	}
}

// Discard is a Display that ignores every edit. Useful when only the
// edit script returned by Update is needed.
var Discard Display = discard{}

type discard struct{}

func (discard) Insert(int, core.Transaction) {}
func (discard) Remove(int64)                 {}
func (discard) Reset()                       {}

// List remembers what is currently displayed and reconciles it against
// new display-ordered items. The mode is fixed for the List's lifetime.
type List struct {
	mu      sync.Mutex
	mode    Mode
	display Display
	shown   []int64
}

func NewList(mode Mode, display Display) *List {
	if display == nil {
		display = Discard
	}
	if mode == "" {
		mode = ModeIncremental
	}
	return &List{mode: mode, display: display}
}

func (l *List) Mode() Mode {
	return l.mode
}

// Seed records ids as already displayed without touching the display.
func (l *List) Seed(ids []int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.shown = append(l.shown[:0], ids...)
}

// Shown returns the ids currently displayed, in display order.
func (l *List) Shown() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int64(nil), l.shown...)
}

// Update drives the display to show items, which must already be in
// display order, and returns the edits applied.
func (l *List) Update(items []core.Transaction) []Op {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := IDs(items)

	if l.mode == ModeRebuild {
		ops := make([]Op, 0, len(items)+1)
		ops = append(ops, Op{Kind: OpReset})
		l.display.Reset()
		for i, tx := range items {
			l.display.Insert(i, tx)
			ops = append(ops, Op{Kind: OpInsert, ID: tx.ID, Index: i})
		}
		l.shown = next
		return ops
	}

	byID := make(map[int64]core.Transaction, len(items))
	for _, tx := range items {
		byID[tx.ID] = tx
	}

	ops := Diff(l.shown, next)
	for _, op := range ops {
		switch op.Kind {
		case OpRemove:
			l.display.Remove(op.ID)
		case OpInsert:
			l.display.Insert(op.Index, byID[op.ID])
		}
	}
	l.shown = next
	return ops
}
