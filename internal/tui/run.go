package tui

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"spendlog/internal/services"
	"spendlog/internal/view"
)

// Notifier forwards tracker refreshes to a running program. Refreshes
// before Attach are dropped; the model syncs when it is built.
type Notifier struct {
	mu      sync.Mutex
	program *tea.Program
}

func (n *Notifier) Attach(p *tea.Program) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.program = p
}

// Refresh matches services.TrackerConfig.OnRefresh. It never blocks: the
// tracker may be refreshing from inside the program's own update.
func (n *Notifier) Refresh(services.Dashboard) {
	n.mu.Lock()
	p := n.program
	n.mu.Unlock()
	if p != nil {
		go p.Send(RefreshMsg{})
	}
}

type Options struct {
	Mode        view.Mode
	SearchDelay time.Duration
	Logger      *slog.Logger
	// ProgramOptions are passed to tea.NewProgram after the defaults.
	ProgramOptions []tea.ProgramOption
}

// Run drives store from the terminal until the user quits or ctx is done.
func Run(ctx context.Context, store *services.TransactionStore, opts Options) error {
	rows := NewRows()
	notifier := &Notifier{}
	tracker := services.NewTracker(store, services.TrackerConfig{
		Display:     rows,
		Mode:        opts.Mode,
		SearchDelay: opts.SearchDelay,
		OnRefresh:   notifier.Refresh,
		Logger:      opts.Logger,
	})
	defer tracker.Close()

	programOpts := append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts.ProgramOptions...)
	p := tea.NewProgram(NewModel(ctx, tracker, rows), programOpts...)
	notifier.Attach(p)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
