package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#36A2EB")).
			Padding(0, 1)

	incomeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E7D32"))
	expenseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C62828"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D97706")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C62828")).Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#4B5563"))

	summaryBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#9966FF")).
			Padding(0, 1)
)
