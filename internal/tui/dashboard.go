// Package tui renders a live dashboard over a running instance's
// diagnostics API: queue depth, in-flight work, the concurrency ceiling,
// and recent scaling decisions.
package tui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gigbase/stagehand/internal/history"
	"github.com/gigbase/stagehand/internal/queue"
)

// pollInterval is how often the dashboard refreshes.
const pollInterval = time.Second

// ScalingInfo mirrors the /api/scaling response.
type ScalingInfo struct {
	Instances           int   `json:"instances"`
	MinInstances        int   `json:"min_instances"`
	MaxInstances        int   `json:"max_instances"`
	CooldownRemainingMs int64 `json:"cooldown_remaining_ms"`
}

// Snapshot is one full dashboard refresh.
type Snapshot struct {
	Stats     queue.QueueStats
	Scaling   ScalingInfo
	Decisions []history.DecisionRecord
}

type snapshotMsg struct {
	snapshot Snapshot
	err      error
}

type tickMsg time.Time

// Model is the dashboard's bubbletea model.
type Model struct {
	addr      string
	spinner   spinner.Model
	decisions table.Model

	snapshot  Snapshot
	connected bool
	fetchErr  error
	width     int
}

// NewModel creates a dashboard polling the diagnostics server at addr.
func NewModel(addr string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	columns := []table.Column{
		{Title: "Time", Width: 8},
		{Title: "Action", Width: 12},
		{Title: "Util", Width: 7},
		{Title: "Instances", Width: 9},
		{Title: "Reason", Width: 44},
	}
	tbl := table.New(
		table.WithColumns(columns),
		table.WithHeight(8),
	)

	return Model{
		addr:      addr,
		spinner:   sp,
		decisions: tbl,
	}
}

// Init starts the spinner and the poll loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, fetchCmd(m.addr), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchCmd pulls one snapshot from the diagnostics API.
func fetchCmd(addr string) tea.Cmd {
	return func() tea.Msg {
		base := "http://" + addr
		client := &http.Client{Timeout: 2 * time.Second}

		var snap Snapshot
		if err := getJSON(client, base+"/api/stats", &snap.Stats); err != nil {
			return snapshotMsg{err: err}
		}
		if err := getJSON(client, base+"/api/scaling", &snap.Scaling); err != nil {
			return snapshotMsg{err: err}
		}
		// History is optional server-side; ignore its absence.
		_ = getJSON(client, base+"/api/history/decisions?limit=8", &snap.Decisions)
		return snapshotMsg{snapshot: snap}
	}
}

func getJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		return m, tea.Batch(fetchCmd(m.addr), tickCmd())

	case snapshotMsg:
		if msg.err != nil {
			m.connected = false
			m.fetchErr = msg.err
			return m, nil
		}
		m.connected = true
		m.fetchErr = nil
		m.snapshot = msg.snapshot
		m.decisions.SetRows(decisionRows(msg.snapshot.Decisions))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// decisionRows converts audit records into table rows, newest first.
func decisionRows(records []history.DecisionRecord) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, table.Row{
			r.CreatedAt.Local().Format("15:04:05"),
			r.Action,
			fmt.Sprintf("%.1f%%", r.Utilization),
			fmt.Sprintf("%d", r.Instances),
			r.Reason,
		})
	}
	return rows
}

// View renders the dashboard.
func (m Model) View() string {
	title := titleStyle.Render("stagehand " + m.addr)

	if !m.connected {
		status := m.spinner.View() + " connecting..."
		if m.fetchErr != nil {
			status += "\n" + errorStyle.Render(m.fetchErr.Error())
		}
		return title + "\n\n" + status + "\n\n" + helpStyle.Render("q: quit")
	}

	s := m.snapshot
	queuePanel := panelStyle.Render(
		labelStyle.Render("Queue") + "\n" +
			row("Buffered", fmt.Sprintf("%d", s.Stats.QueueLength)) +
			row("In flight", fmt.Sprintf("%d / %d", s.Stats.ProcessingCount, s.Stats.ConcurrencyCeiling)) +
			row("Utilization", renderUtilization(s.Stats.UtilizationPercent)) +
			row("Overflowed", fmt.Sprintf("%d", s.Stats.OverflowCount)),
	)
	scalingPanel := panelStyle.Render(
		labelStyle.Render("Scaling") + "\n" +
			row("Instances", fmt.Sprintf("%d (%d-%d)", s.Scaling.Instances, s.Scaling.MinInstances, s.Scaling.MaxInstances)) +
			row("Cooldown", renderCooldown(s.Scaling.CooldownRemainingMs)),
	)
	panels := lipgloss.JoinHorizontal(lipgloss.Top, queuePanel, " ", scalingPanel)

	decisionsPanel := panelStyle.Render(
		labelStyle.Render("Recent decisions") + "\n" + m.decisions.View(),
	)

	return title + "\n\n" + panels + "\n" + decisionsPanel + "\n" + helpStyle.Render("q: quit")
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-12s", label)) + valueStyle.Render(value) + "\n"
}

func renderUtilization(pct float64) string {
	text := fmt.Sprintf("%.1f%%", pct)
	if pct >= 90 {
		return errorStyle.Render(text)
	}
	if pct >= 70 {
		return warnStyle.Render(text)
	}
	return text
}

func renderCooldown(ms int64) string {
	if ms <= 0 {
		return "ready"
	}
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}

// Run starts the dashboard program and blocks until the user quits.
func Run(addr string) error {
	p := tea.NewProgram(NewModel(addr), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
