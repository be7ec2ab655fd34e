package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ArnoKim89/arno-game-server/internal/hubclient"
)

// StatsFunc fetches one snapshot of hub counters.
type StatsFunc func(ctx context.Context) (hubclient.Stats, error)

type tickMsg time.Time

type statsMsg struct {
	stats hubclient.Stats
	err   error
	at    time.Time
}

// dashboardModel polls the hub and shows the latest counters.
type dashboardModel struct {
	target   string
	fetch    StatsFunc
	interval time.Duration
	spinner  spinner.Model

	stats    hubclient.Stats
	err      error
	updated  time.Time
	loaded   bool
	quitting bool
}

func newDashboardModel(target string, interval time.Duration, fetch StatsFunc) dashboardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = accent

	return dashboardModel{
		target:   target,
		fetch:    fetch,
		interval: interval,
		spinner:  s,
	}
}

// RunDashboard blocks until the user quits with q or ctrl+c.
func RunDashboard(target string, interval time.Duration, fetch StatsFunc) error {
	_, err := tea.NewProgram(newDashboardModel(target, interval, fetch)).Run()
	return err
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

func (m dashboardModel) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.interval)
		defer cancel()
		st, err := m.fetch(ctx)
		return statsMsg{stats: st, err: err, at: time.Now()}
	}
}

func (m dashboardModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		return m, m.poll()

	case statsMsg:
		m.err = msg.err
		if msg.err == nil {
			m.stats = msg.stats
			m.updated = msg.at
			m.loaded = true
		}
		return m, m.tick()
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("\n%s %s\n\n", badgeStyle.Render("relayhub"), dim.Render(m.target)))

	if m.loaded {
		b.WriteString(StatsView(m.stats))
		b.WriteString("\n")
		b.WriteString(dim.Render(fmt.Sprintf("%s updated %s", IconTime, m.updated.Format(time.TimeOnly))))
		b.WriteString("\n")
	} else if m.err == nil {
		b.WriteString(fmt.Sprintf("%s Fetching stats...\n", m.spinner.View()))
	}

	if m.err != nil {
		b.WriteString(fail.Render(fmt.Sprintf("%s %v", IconError, m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n" + dim.Render("Press q to quit"))
	return b.String()
}
