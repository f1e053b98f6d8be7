// Package tui is the terminal front end of the tracker: a live list with a
// debounced search box, a summary header and row deletion.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"spendlog/internal/core"
	"spendlog/internal/services"
)

// Tracker is the part of services.Tracker the terminal UI drives.
type Tracker interface {
	Search(query string)
	Query() string
	Dashboard(query string) services.Dashboard
	DeleteTransaction(ctx context.Context, id int64) (bool, error)
}

// RefreshMsg tells the model the tracker recomputed its views.
type RefreshMsg struct{}

type deletedMsg struct {
	id      int64
	removed bool
	err     error
}

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusWarning
	statusError
)

type Model struct {
	ctx     context.Context
	tracker Tracker
	rows    *Rows
	keys    KeyMap

	search    textinput.Model
	searching bool

	items      []core.Transaction
	cursor     int
	selectedID int64

	summary    core.Summary
	memoryOnly bool

	status      string
	statusLevel statusLevel

	width  int
	height int
}

// NewModel builds a model over rows, which must be the Display the
// tracker was configured with.
func NewModel(ctx context.Context, tracker Tracker, rows *Rows) Model {
	search := textinput.New()
	search.Placeholder = "Search transactions..."
	search.Prompt = "/ "
	search.CharLimit = 100
	search.SetValue(tracker.Query())

	m := Model{
		ctx:     ctx,
		tracker: tracker,
		rows:    rows,
		keys:    DefaultKeyMap(),
		search:  search,
		width:   80,
		height:  24,
	}
	m.sync()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, tea.Quit
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateList(msg)

	case RefreshMsg:
		m.sync()

	case deletedMsg:
		m.setDeleteStatus(msg)
		m.sync()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Leave) {
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if after := m.search.Value(); after != before {
		m.tracker.Search(after)
	}
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Delete):
		if len(m.items) == 0 {
			return m, nil
		}
		return m, m.deleteCmd(m.items[m.cursor].ID)
	}
	return m, nil
}

func (m Model) deleteCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		removed, err := m.tracker.DeleteTransaction(m.ctx, id)
		return deletedMsg{id: id, removed: removed, err: err}
	}
}

func (m *Model) setDeleteStatus(msg deletedMsg) {
	switch {
	case errors.Is(msg.err, services.ErrPersistence):
		m.status, m.statusLevel = "Deleted in memory only: storage is unavailable", statusWarning
	case msg.err != nil:
		m.status, m.statusLevel = "Delete failed: "+msg.err.Error(), statusError
	case !msg.removed:
		m.status, m.statusLevel = "Transaction was already removed", statusInfo
	default:
		m.status, m.statusLevel = fmt.Sprintf("Deleted transaction %d", msg.id), statusInfo
	}
}

func (m *Model) moveCursor(delta int) {
	if len(m.items) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.items)-1)
	m.selectedID = m.items[m.cursor].ID
}

// sync pulls the current rows and summary. The cursor follows the
// selected transaction when it is still displayed.
func (m *Model) sync() {
	m.items = m.rows.Snapshot()
	d := m.tracker.Dashboard(m.tracker.Query())
	m.summary = d.Summary
	m.memoryOnly = d.MemoryOnly

	if len(m.items) == 0 {
		m.cursor, m.selectedID = 0, 0
		return
	}
	for i, tx := range m.items {
		if tx.ID == m.selectedID {
			m.cursor = i
			return
		}
	}
	m.cursor = min(m.cursor, len(m.items)-1)
	m.selectedID = m.items[m.cursor].ID
}

// Selected returns the transaction under the cursor.
func (m Model) Selected() (core.Transaction, bool) {
	if len(m.items) == 0 {
		return core.Transaction{}, false
	}
	return m.items[m.cursor], true
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("spendlog"))
	b.WriteString("\n\n")
	b.WriteString(m.summaryView())
	b.WriteString("\n")
	if m.memoryOnly {
		b.WriteString(warningStyle.Render("Storage is unavailable: changes are kept in memory only."))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.search.View())
	b.WriteString("\n\n")
	b.WriteString(m.listView())
	b.WriteString("\n")

	if m.status != "" {
		style := mutedStyle
		switch m.statusLevel {
		case statusWarning:
			style = warningStyle
		case statusError:
			style = errorStyle
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(m.helpView()))
	return b.String()
}

func (m Model) summaryView() string {
	balance := core.FormatCurrency(m.summary.Balance.Cents)
	if m.summary.Balance.Cents < 0 {
		balance = expenseStyle.Render(balance)
	} else {
		balance = incomeStyle.Render(balance)
	}
	line := fmt.Sprintf("Balance %s   Income %s   Expenses %s   %d transactions",
		balance,
		incomeStyle.Render(core.FormatCurrency(m.summary.TotalIncome.Cents)),
		expenseStyle.Render(core.FormatCurrency(m.summary.TotalExpense.Cents)),
		m.summary.Count)
	return summaryBox.Render(line)
}

func (m Model) listView() string {
	if len(m.items) == 0 {
		if q := m.search.Value(); q != "" {
			return mutedStyle.Render(fmt.Sprintf("No transactions match %q.", q))
		}
		return mutedStyle.Render("No transactions yet.")
	}

	start, end := m.window()
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		tx := m.items[i]
		line := formatRow(tx)
		switch {
		case i == m.cursor && !m.searching:
			line = selectedStyle.Render(line)
		case tx.Type == core.Income:
			line = incomeStyle.Render(line)
		default:
			line = expenseStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// window returns the slice of rows that fits the terminal, keeping the
// cursor visible.
func (m Model) window() (int, int) {
	visible := max(m.height-12, 5)
	if len(m.items) <= visible {
		return 0, len(m.items)
	}
	start := max(m.cursor-visible/2, 0)
	end := start + visible
	if end > len(m.items) {
		end = len(m.items)
		start = end - visible
	}
	return start, end
}

func (m Model) helpView() string {
	if m.searching {
		return m.keys.Leave.Help().Key + " " + m.keys.Leave.Help().Desc
	}
	parts := make([]string, 0, len(m.keys.ShortHelp()))
	for _, b := range m.keys.ShortHelp() {
		parts = append(parts, b.Help().Key+" "+b.Help().Desc)
	}
	return strings.Join(parts, " • ")
}

func formatRow(tx core.Transaction) string {
	category := tx.Category
	if category == "" {
		category = core.UncategorizedLabel
	}
	return fmt.Sprintf("%-10s  %-30s  %-16s  %12s",
		tx.Date.String(),
		truncate(tx.Description, 30),
		truncate(category, 16),
		core.FormatCurrency(tx.Amount.Cents))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
