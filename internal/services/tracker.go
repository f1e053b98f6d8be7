package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"spendlog/internal/chart"
	"spendlog/internal/core"
	"spendlog/internal/search"
	"spendlog/internal/view"
)

// Dashboard is everything a UI needs to render one frame.
type Dashboard struct {
	Query      string
	Summary    core.Summary
	Items      []core.Transaction
	MemoryOnly bool
}

// TrackerConfig wires the optional collaborators of a Tracker.
type TrackerConfig struct {
	// Display receives list edits. Nil means no stateful display.
	Display view.Display
	Mode    view.Mode
	// Chart receives the breakdown after every change. May be nil.
	Chart       chart.Renderer
	SearchDelay time.Duration
	// OnRefresh runs after derived views are recomputed.
	OnRefresh func(Dashboard)
	Logger    *slog.Logger
}

// Tracker is constructed once at startup and keeps the derived views
// (list, chart) in step with the store.
type Tracker struct {
	store     *TransactionStore
	list      *view.List
	chart     *chart.Adapter
	filter    *search.Filter
	onRefresh func(Dashboard)
	logger    *slog.Logger

	refreshMu sync.Mutex
}

func NewTracker(store *TransactionStore, cfg TrackerConfig) *Tracker {
	t := &Tracker{
		store:     store,
		list:      view.NewList(cfg.Mode, cfg.Display),
		onRefresh: cfg.OnRefresh,
		logger:    cfg.Logger,
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if cfg.Chart != nil {
		t.chart = chart.NewAdapter(cfg.Chart)
	}
	t.filter = search.NewFilter(store, cfg.SearchDelay, func(string, []core.Transaction) {
		t.Refresh()
	})

	store.OnChange(t.Refresh)
	t.Refresh()
	return t
}

func (t *Tracker) Store() *TransactionStore {
	return t.store
}

// AddTransaction validates and stores a candidate. A *core.ValidationError
// means nothing changed; ErrPersistence means the record was added in
// memory only.
func (t *Tracker) AddTransaction(ctx context.Context, c core.Candidate) (core.Transaction, error) {
	return t.store.Add(ctx, c)
}

// DeleteTransaction removes id and reports whether it existed. Unknown
// ids are ignored: they can only come from a stale display.
func (t *Tracker) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	err := t.store.Remove(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		t.logger.DebugContext(ctx, "Ignoring delete of unknown transaction", "id", id)
		return false, nil
	}
	return true, err
}

// Search schedules a debounced re-filter of the display.
func (t *Tracker) Search(query string) {
	t.filter.Update(query)
}

// SearchNow filters immediately, cancelling any pending search.
func (t *Tracker) SearchNow(query string) {
	t.filter.Evaluate(query)
}

// Query is the filter currently applied to the display.
func (t *Tracker) Query() string {
	return t.filter.Query()
}

// Mode is the reconcile mode the display is driven with.
func (t *Tracker) Mode() view.Mode {
	return t.list.Mode()
}

// Close cancels any pending search.
func (t *Tracker) Close() {
	t.filter.Stop()
}

// Dashboard computes a frame for query without touching the display.
// Totals and the chart always cover the whole collection; only the list
// is filtered.
func (t *Tracker) Dashboard(query string) Dashboard {
	all := t.store.List()
	return Dashboard{
		Query:      query,
		Summary:    core.Summarize(all),
		Items:      view.SortForDisplay(search.Match(query, all)),
		MemoryOnly: t.store.MemoryOnly(),
	}
}

// Refresh recomputes derived views from the store and pushes them to the
// display and chart.
func (t *Tracker) Refresh() {
	t.refreshMu.Lock()
	defer t.refreshMu.Unlock()

	d := t.Dashboard(t.filter.Query())
	t.list.Update(d.Items)
	if t.chart != nil {
		t.chart.Publish(d.Summary.Breakdown)
	}
	if t.onRefresh != nil {
		t.onRefresh(d)
	}
}

// Patch returns the edits that turn a client's displayed ids into the
// current display for query, using the tracker's reconcile mode.
func (t *Tracker) Patch(shown []int64, query string) ([]view.Op, Dashboard) {
	d := t.Dashboard(query)
	l := view.NewList(t.list.Mode(), view.Discard)
	l.Seed(shown)
	return l.Update(d.Items), d
}
