package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"klang/internal/stress"
)

type stressModel struct {
	title   string
	events  <-chan stress.Event
	spinner spinner.Model
	prog    progress.Model
	workers []workerItem
	width   int
	done    bool
	failed  int
	stopped bool
}

type workerItem struct {
	status stress.Status
	done   int
	total  int
	err    string
}

type eventMsg stress.Event
type doneMsg struct{}

// NewStressModel returns a Bubble Tea model that renders stress worker
// progress until events is closed.
func NewStressModel(title string, workers, iterations int, events <-chan stress.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76 // Default width

	items := make([]workerItem, max(workers, 0))
	for i := range items {
		items[i] = workerItem{status: stress.StatusQueued, total: iterations}
	}
	return &stressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		workers: items,
		width:   80,
	}
}

func (m *stressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *stressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(stress.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.stopped = true
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// Interrupted reports whether the user quit before the run finished.
func (m *stressModel) Interrupted() bool { return m.stopped }

func (m *stressModel) View() string {
	if len(m.workers) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.failed > 0 {
		header = fmt.Sprintf("%s (%d failed)", header, m.failed)
	}
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 12
	lineWidth := max(m.width-statusWidth-4, 20)
	for i, w := range m.workers {
		status := w.status.String()
		statusStyled := styleStatus(w.status).Render(fmt.Sprintf("%12s", status))
		line := fmt.Sprintf("worker %-3d %d/%d", i, w.done, w.total)
		if w.err != "" {
			line += "  " + w.err
		}
		fmt.Fprintf(&b, "  %s %s\n", statusStyled, truncate(line, lineWidth))
	}

	b.WriteString("\n")
	if m.done && m.failed == 0 {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")

	return b.String()
}

func (m *stressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *stressModel) applyEvent(ev stress.Event) tea.Cmd {
	if ev.Worker < 0 || ev.Worker >= len(m.workers) {
		return nil
	}
	w := &m.workers[ev.Worker]
	if w.status == stress.StatusDone || w.status == stress.StatusError {
		return nil
	}
	w.status = ev.Status
	w.done = ev.Done
	if ev.Total > 0 {
		w.total = ev.Total
	}
	if ev.Err != nil {
		w.err = ev.Err.Error()
		m.failed++
	}
	return m.prog.SetPercent(m.percent())
}

func (m *stressModel) percent() float64 {
	total := 0.0
	for _, w := range m.workers {
		switch {
		case w.status == stress.StatusDone || w.status == stress.StatusError:
			total += 1.0
		case w.total > 0:
			total += float64(w.done) / float64(w.total)
		}
	}
	return total / float64(len(m.workers))
}

func styleStatus(status stress.Status) lipgloss.Style {
	switch status {
	case stress.StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case stress.StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case stress.StatusWorking:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
