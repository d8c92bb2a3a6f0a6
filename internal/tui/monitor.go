// Package tui provides a terminal dashboard over the delivery ledger.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/phanesguild/licensegw/internal/ledger"
)

// --- Styles ---

var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2c3e50")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
)

const refreshInterval = 2 * time.Second

// --- Messages ---

type tickMsg time.Time

type refreshMsg struct {
	entries []ledger.Entry
	total   int
}

type errMsg struct{ err error }

// Model is the bubbletea model for the ledger monitor.
type Model struct {
	store *ledger.Store

	width  int
	height int

	deliveries  table.Model
	total       int
	lastRefresh time.Time
	lastErr     error
}

// NewMonitor creates a ledger monitor over an opened store.
func NewMonitor(store *ledger.Store) *Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Delivered", Width: 19},
			{Title: "Order", Width: 12},
			{Title: "Buyer", Width: 30},
			{Title: "Name", Width: 24},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return &Model{store: store, deliveries: t}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tea.EnterAltScreen)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.refresh()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.deliveries.SetHeight(max(5, m.height-8))

	case tickMsg:
		return m, m.refresh()

	case refreshMsg:
		rows := make([]table.Row, 0, len(msg.entries))
		for _, e := range msg.entries {
			rows = append(rows, table.Row{
				e.DeliveredAt.Local().Format("2006-01-02 15:04:05"),
				e.OrderID,
				e.BuyerEmail,
				e.BuyerName,
			})
		}
		m.deliveries.SetRows(rows)
		m.total = msg.total
		m.lastRefresh = time.Now()
		m.lastErr = nil
		return m, m.tick()

	case errMsg:
		m.lastErr = msg.err
		return m, m.tick()
	}

	m.deliveries, cmd = m.deliveries.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	title := titleStyle.Render("licensegw - delivery ledger")

	status := statusStyle.Render(fmt.Sprintf("%d deliveries total · refreshed %s · q quit · r refresh",
		m.total, m.lastRefresh.Format("15:04:05")))
	if m.lastErr != nil {
		status = errStyle.Render("ledger read failed: " + m.lastErr.Error())
	}

	return docStyle.Render(title + "\n\n" + m.deliveries.View() + "\n\n" + status)
}

// refresh reads recent deliveries off the event loop.
func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		entries, err := m.store.Recent(ctx, 200)
		if err != nil {
			return errMsg{err: err}
		}
		total, err := m.store.Count(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return refreshMsg{entries: entries, total: total}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
