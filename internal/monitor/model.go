// Package monitor renders a terminal dashboard over one attached block:
// live snapshot panels, the notification event log, and duty cycle control.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/srediag/burnin-plugin/pkg/host"
)

// DefaultInterval is the snapshot refresh period.
const DefaultInterval = 200 * time.Millisecond

const maxLogLines = 8

// Options configures the dashboard.
type Options struct {
	// Interval overrides the refresh period; zero means DefaultInterval.
	Interval time.Duration
}

type tickMsg time.Time

type eventMsg host.Event

type eventsClosedMsg struct{}

type model struct {
	host     *host.Host
	events   <-chan host.Event
	interval time.Duration

	snap  host.Snapshot
	log   []host.Event
	duty  uint32
	armed bool
	sp    spinner.Model
}

func newModel(h *host.Host, events <-chan host.Event, interval time.Duration) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(primary)
	return model{
		host:     h,
		events:   events,
		interval: interval,
		duty:     h.DutyCycle(),
		armed:    h.TestRunning(),
		sp:       sp,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.sp.Tick, m.tick(), m.nextEvent())
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) nextEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, Keys.Quit):
			m.host.SetTestRunning(false)
			return m, tea.Quit
		case key.Matches(msg, Keys.DutyUp):
			m.setDuty(min(m.duty+5, 100))
			return m, nil
		case key.Matches(msg, Keys.DutyDown):
			if m.duty >= 5 {
				m.setDuty(m.duty - 5)
			} else {
				m.setDuty(0)
			}
			return m, nil
		case key.Matches(msg, Keys.FullDuty):
			m.setDuty(100)
			return m, nil
		case key.Matches(msg, Keys.Toggle):
			m.armed = !m.armed
			m.host.SetTestRunning(m.armed)
			return m, nil
		}
		return m, nil

	case tickMsg:
		m.snap = m.host.Snapshot()
		return m, m.tick()

	case eventMsg:
		m.log = append(m.log, host.Event(msg))
		if len(m.log) > maxLogLines {
			m.log = m.log[len(m.log)-maxLogLines:]
		}
		return m, m.nextEvent()

	case eventsClosedMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.sp, cmd = m.sp.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) setDuty(d uint32) {
	m.duty = d
	_ = m.host.SetDutyCycle(d)
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Burn-in Monitor " + m.host.Name()))
	b.WriteString("\n")

	if m.snap.Version == 0 {
		b.WriteString(m.sp.View() + " waiting for plugin\n")
		b.WriteString(m.helpView())
		return b.String()
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(m.statusView()),
		panelStyle.Render(m.countersView()),
	))
	b.WriteString("\n")
	if users := m.usersView(); users != "" {
		b.WriteString(panelStyle.Render(users))
		b.WriteString("\n")
	}
	if m.snap.ErrorCount > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("errors: %d  last: %s [%s]",
			m.snap.ErrorCount, m.snap.ErrorText, m.snap.ErrorSeverity)))
		b.WriteString("\n")
	}
	if len(m.log) > 0 {
		b.WriteString(m.logView())
	}
	b.WriteString(m.helpView())
	return b.String()
}

func (m model) statusView() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("plugin  ") + valueStyle.Render(m.snap.WindowTitle) + "\n")
	b.WriteString(labelStyle.Render("cycle   ") + valueStyle.Render(fmt.Sprintf("%d", m.snap.Cycle)) + "\n")
	b.WriteString(labelStyle.Render("status  ") +
		valueStyle.Render(fmt.Sprintf("%s [%s]", m.snap.Status, m.snap.StatusCode)) + "\n")
	run := okStyle.Render("armed")
	if !m.armed {
		run = warnStyle.Render("disarmed")
	}
	if m.snap.TestStopped {
		run = errorStyle.Render("stopped")
	}
	b.WriteString(labelStyle.Render("run     ") + run + "\n")
	b.WriteString(labelStyle.Render("duty    ") + valueStyle.Render(fmt.Sprintf("%d%%", m.duty)))
	return b.String()
}

func (m model) countersView() string {
	var b strings.Builder
	b.WriteString(counterLine(m.snap.WriteLabel, m.snap.WriteOps) + "\n")
	b.WriteString(counterLine(m.snap.ReadLabel, m.snap.ReadOps) + "\n")
	b.WriteString(counterLine(m.snap.VerifyLabel, m.snap.VerifyOps))
	return b.String()
}

func counterLine(label string, ops int64) string {
	return labelStyle.Render(fmt.Sprintf("%-18s", label)) + valueStyle.Render(fmt.Sprintf("%d", ops))
}

func (m model) usersView() string {
	var lines []string
	for _, u := range m.snap.Users {
		if !u.Enabled {
			continue
		}
		lines = append(lines,
			labelStyle.Render(fmt.Sprintf("%-18s", u.Label))+valueStyle.Render(u.Value))
	}
	return strings.Join(lines, "\n")
}

func (m model) logView() string {
	var b strings.Builder
	for _, ev := range m.log {
		ts := labelStyle.Render(ev.At.Format("15:04:05"))
		switch ev.Kind {
		case host.EventStatus:
			fmt.Fprintf(&b, "%s %s %s\n", ts, okStyle.Render("status"),
				valueStyle.Render(fmt.Sprintf("%s [%s]", ev.Status, ev.StatusCode)))
		case host.EventError:
			fmt.Fprintf(&b, "%s %s %s\n", ts, errorStyle.Render("error "),
				valueStyle.Render(fmt.Sprintf("#%d %s [%s]", ev.ErrorCount, ev.ErrorText, ev.Severity)))
		case host.EventUser:
			fmt.Fprintf(&b, "%s %s %s\n", ts, warnStyle.Render("user  "),
				valueStyle.Render(fmt.Sprintf("%s: %s", ev.Field.Label, ev.Field.Value)))
		}
	}
	return b.String()
}

func (m model) helpView() string {
	bindings := []key.Binding{Keys.DutyUp, Keys.DutyDown, Keys.FullDuty, Keys.Toggle, Keys.Quit}
	parts := make([]string, 0, len(bindings))
	for _, k := range bindings {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return helpStyle.Render(strings.Join(parts, "   "))
}

// Run drives the dashboard until the user quits or ctx ends.
func Run(ctx context.Context, h *host.Host, opts Options) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	events := h.Events(ctx, interval)
	p := tea.NewProgram(newModel(h, events, interval), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
