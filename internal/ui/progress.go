package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"strand/internal/trace"
)

// Status is the run state of one lesson.
type Status uint8

const (
	StatusQueued Status = iota
	StatusRunning
	StatusDone
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusError:
		return "error"
	default:
		return ""
	}
}

// Event updates the row of one lesson. A non-nil Trace carries a runtime
// event from the lesson's executor; otherwise Status is applied.
type Event struct {
	Lesson string
	Status Status
	Note   string
	Trace  *trace.Event
}

type progressModel struct {
	title   string
	events  <-chan Event
	spinner spinner.Model
	prog    progress.Model
	items   []lessonItem
	index   map[string]int
	width   int
	done    bool
}

type lessonItem struct {
	name   string
	status Status
	note   string
	live   int
	clock  time.Duration
	last   string
}

type eventMsg Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders lesson progress
// until events is closed.
func NewProgressModel(title string, lessons []string, events <-chan Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76 // Default width

	items := make([]lessonItem, 0, len(lessons))
	index := make(map[string]int, len(lessons))
	for i, name := range lessons {
		items = append(items, lessonItem{name: name})
		index[name] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
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

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	finished := 0
	for _, item := range m.items {
		if item.status == StatusDone || item.status == StatusError {
			finished++
		}
	}
	header := fmt.Sprintf("%s (%d/%d)", m.title, finished, len(m.items))
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 8
	nameWidth := 18
	detailWidth := m.width - statusWidth - nameWidth - 6
	if detailWidth < 20 {
		detailWidth = 20
	}

	for _, item := range m.items {
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%8s", item.status))
		name := runewidth.FillRight(truncate(item.name, nameWidth), nameWidth)
		line := fmt.Sprintf("  %s %s %s", statusStyled, name, truncate(item.detail(), detailWidth))
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")

	return b.String()
}

func (item lessonItem) detail() string {
	switch item.status {
	case StatusRunning:
		if item.last == "" {
			return ""
		}
		return fmt.Sprintf("%d live @%s  %s", item.live, clockLabel(item.clock), item.last)
	case StatusDone, StatusError:
		return item.note
	default:
		return ""
	}
}

func clockLabel(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev Event) tea.Cmd {
	idx, ok := m.index[ev.Lesson]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	if ev.Trace != nil {
		applyTrace(item, ev.Trace)
		return nil
	}
	item.status = ev.Status
	item.note = ev.Note

	finished := 0.0
	for _, it := range m.items {
		switch it.status {
		case StatusDone, StatusError:
			finished += 1.0
		case StatusRunning:
			finished += 0.5
		}
	}
	return m.prog.SetPercent(finished / float64(len(m.items)))
}

func applyTrace(item *lessonItem, ev *trace.Event) {
	switch ev.Name {
	case "task.spawn":
		item.live++
	case "task.done", "task.fail", "task.cancel":
		if item.live > 0 {
			item.live--
		}
	}
	item.clock = ev.Clock
	item.last = ev.Name
}

func styleStatus(status Status) lipgloss.Style {
	switch status {
	case StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case StatusRunning:
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
