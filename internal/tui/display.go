package tui

import (
	"sync"

	"spendlog/internal/core"
)

// Rows is the terminal list's copy of the displayed transactions. The
// tracker edits it in place through the view.Display methods, so rows
// that survive an update keep their identity and the model can keep the
// cursor on the selected transaction.
type Rows struct {
	mu    sync.Mutex
	items []core.Transaction
}

func NewRows() *Rows {
	return &Rows{}
}

func (r *Rows) Insert(index int, tx core.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	index = min(max(index, 0), len(r.items))
	r.items = append(r.items, core.Transaction{})
	copy(r.items[index+1:], r.items[index:])
	r.items[index] = tx
}

func (r *Rows) Remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return
		}
	}
}

func (r *Rows) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}

// Snapshot returns a copy of the rows in display order.
func (r *Rows) Snapshot() []core.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Transaction(nil), r.items...)
}
