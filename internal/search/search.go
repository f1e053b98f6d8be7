// Package search narrows the displayed transactions to those matching a
// live query.
package search

import (
	"strings"
	"sync"
	"time"

	"spendlog/internal/core"
)

// DefaultDelay is the quiet period before a query is evaluated.
const DefaultDelay = 300 * time.Millisecond

// Matches reports whether tx matches query, case-insensitively, against
// its description and category.
func Matches(query string, tx core.Transaction) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	haystack := strings.ToLower(tx.Description + " " + tx.Category)
	return strings.Contains(haystack, q)
}

// Match returns the transactions matching query, preserving order. An
// empty query returns txs unfiltered.
func Match(query string, txs []core.Transaction) []core.Transaction {
	if strings.TrimSpace(query) == "" {
		return txs
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if Matches(query, tx) {
			out = append(out, tx)
		}
	}
	return out
}

// Source supplies the current collection.
type Source interface {
	List() []core.Transaction
}

// Filter evaluates queries against a Source after a debounce delay and
// hands the matches to a callback. It never mutates the source.
type Filter struct {
	source    Source
	debouncer *Debouncer
	onResults func(query string, matches []core.Transaction)

	mu    sync.Mutex
	query string
}

func NewFilter(source Source, delay time.Duration, onResults func(query string, matches []core.Transaction)) *Filter {
	return &Filter{
		source:    source,
		debouncer: NewDebouncer(delay),
		onResults: onResults,
	}
}

// Update schedules evaluation of query; a newer Update before the delay
// elapses supersedes it.
func (f *Filter) Update(query string) {
	f.debouncer.Trigger(func() {
		f.evaluate(query)
	})
}

// Evaluate runs query immediately, cancelling any pending evaluation.
func (f *Filter) Evaluate(query string) []core.Transaction {
	f.debouncer.Stop()
	return f.evaluate(query)
}

func (f *Filter) evaluate(query string) []core.Transaction {
	f.mu.Lock()
	f.query = query
	f.mu.Unlock()

	matches := Match(query, f.source.List())
	if f.onResults != nil {
		f.onResults(query, matches)
	}
	return matches
}

// Query returns the most recently evaluated query.
func (f *Filter) Query() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.query
}

// Stop cancels any pending evaluation.
func (f *Filter) Stop() {
	f.debouncer.Stop()
}
