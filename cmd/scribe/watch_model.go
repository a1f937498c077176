package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scribe/internal/api"
)

const (
	watchPollInterval = time.Second
	watchMaxRecent    = 8
)

var (
	colorCyan   = lipgloss.Color("#00FFFF")
	colorGreen  = lipgloss.Color("#00FF00")
	colorRed    = lipgloss.Color("#FF0000")
	colorYellow = lipgloss.Color("#FFFF00")
	colorGray   = lipgloss.Color("#666666")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle   = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	busyStyle    = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(colorGray)
	successStyle = lipgloss.NewStyle().Foreground(colorGreen)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed)
	footerStyle  = lipgloss.NewStyle().Foreground(colorGray)
)

// progressFetcher returns the daemon's current snapshot.
type progressFetcher func() (api.Progress, error)

type progressMsg struct {
	progress api.Progress
	at       time.Time
}

type progressErrMsg struct{ err error }

type tickMsg time.Time

// watchModel is the bubbletea model behind "scribe watch". Finished jobs are
// collected from successive LastResult values, so the list only covers jobs
// that finished while watching.
type watchModel struct {
	fetch progressFetcher

	progress  api.Progress
	updatedAt time.Time
	connected bool
	errText   string
	recent    []api.Result
	width     int
}

func newWatchModel(fetch progressFetcher) watchModel {
	return watchModel{fetch: fetch}
}

func (m watchModel) Init() tea.Cmd {
	return fetchCmd(m.fetch)
}

func fetchCmd(fetch progressFetcher) tea.Cmd {
	return func() tea.Msg {
		p, err := fetch()
		if err != nil {
			return progressErrMsg{err: err}
		}
		return progressMsg{progress: p, at: time.Now()}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(watchPollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case progressMsg:
		m.connected = true
		m.errText = ""
		m.recordResult(msg.progress.LastResult)
		m.progress = msg.progress
		m.updatedAt = msg.at
		return m, tickCmd()

	case progressErrMsg:
		m.connected = false
		m.errText = msg.err.Error()
		return m, tickCmd()

	case tickMsg:
		return m, fetchCmd(m.fetch)
	}
	return m, nil
}

func (m *watchModel) recordResult(r *api.Result) {
	if r == nil {
		return
	}
	if len(m.recent) > 0 && m.recent[0].JobID == r.JobID {
		return
	}
	m.recent = append([]api.Result{*r}, m.recent...)
	if len(m.recent) > watchMaxRecent {
		m.recent = m.recent[:watchMaxRecent]
	}
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("scribe"))
	b.WriteString("\n\n")

	if !m.connected {
		if m.errText != "" {
			b.WriteString(errorStyle.Render("Daemon unreachable: " + m.errText))
		} else {
			b.WriteString(idleStyle.Render("Connecting..."))
		}
		b.WriteString("\n\n")
		b.WriteString(footerStyle.Render("q quit"))
		return b.String()
	}

	p := m.progress
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	if p.Busy() {
		current := busyStyle.Render(p.CurrentTask)
		if since := api.Since(p.StartedAt, m.updatedAt); since != "-" {
			current += idleStyle.Render(" (" + since + ")")
		}
		row("Current", current)
	} else {
		row("Current", idleStyle.Render("idle"))
	}
	row("Queued", fmt.Sprintf("%d", p.Queued))
	row("Completed", fmt.Sprintf("%d", p.Completed))

	if len(m.recent) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Finished"))
		b.WriteString("\n")
		for _, r := range m.recent {
			b.WriteString(m.renderResult(r))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render("q quit · updated " + m.updatedAt.Format("15:04:05")))
	return b.String()
}

func (m watchModel) renderResult(r api.Result) string {
	if r.Status != "success" {
		return errorStyle.Render("✗ ") + api.ShortPath(r.InputPath) + errorStyle.Render("  "+r.Error)
	}
	detail := fmt.Sprintf("  %s, %s", api.LanguageLabel(r), api.ElapsedLabel(r.ElapsedSeconds))
	return successStyle.Render("✓ ") + api.ShortPath(r.OutputPath) + idleStyle.Render(detail)
}
