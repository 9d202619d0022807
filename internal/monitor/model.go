package monitor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/wifiapp/internal/portal"
	"github.com/muurk/wifiapp/internal/wifiapp"
)

const (
	// maxHistory is how many events the dashboard keeps
	maxHistory = 8

	commandTimeout = 15 * time.Second
)

// Feed is an open status subscription. *portal.Subscription satisfies it.
type Feed interface {
	Next() (portal.Event, error)
	Close() error
}

// Controller sends commands to the manager. *portal.Client satisfies it.
type Controller interface {
	Disconnect(ctx context.Context) (portal.AcceptedResponse, error)
	Reconnect(ctx context.Context) (portal.AcceptedResponse, error)
}

// Message types for async operations
type (
	eventMsg   struct{ event portal.Event }
	feedErrMsg struct{ err error }
	commandMsg struct {
		action string
		resp   portal.AcceptedResponse
		err    error
	}
)

// historyEntry is one line of the event list.
type historyEntry struct {
	at   time.Time
	text string
}

// Model is the dashboard state.
type Model struct {
	Source string // portal address shown in the header

	ctrl Controller
	feed Feed

	status  wifiapp.Status
	history []historyEntry
	live    bool
	pending string
	notice  string
	err     error

	width    int
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	quitting bool
}

// NewModel creates a dashboard reading feed and sending commands through ctrl.
func NewModel(source string, feed Feed, ctrl Controller) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = stateStyle(wifiapp.StateConnecting)

	return Model{
		Source:  source,
		ctrl:    ctrl,
		feed:    feed,
		live:    true,
		width:   MinTerminalWidth,
		spinner: s,
		help:    help.New(),
		keys:    defaultKeys(),
	}
}

// Status returns the last status received.
func (m Model) Status() wifiapp.Status { return m.status }

// Init starts reading the feed.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.feed))
}

func waitForEvent(feed Feed) tea.Cmd {
	return func() tea.Msg {
		ev, err := feed.Next()
		if err != nil {
			return feedErrMsg{err: err}
		}
		return eventMsg{event: ev}
	}
}

func sendCommand(ctrl Controller, action string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		var resp portal.AcceptedResponse
		var err error
		switch action {
		case "disconnect":
			resp, err = ctrl.Disconnect(ctx)
		default:
			resp, err = ctrl.Reconnect(ctx)
		}
		return commandMsg{action: action, resp: resp, err: err}
	}
}

// Update handles feed events, command results and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width, nil)
		m.help.Width = m.width
		return m, nil

	case eventMsg:
		m.apply(msg.event)
		return m, waitForEvent(m.feed)

	case feedErrMsg:
		m.live = false
		if !m.quitting {
			m.err = fmt.Errorf("status feed closed: %w", msg.err)
		}
		return m, nil

	case commandMsg:
		m.pending = ""
		if msg.err != nil {
			m.err = fmt.Errorf("%s failed: %w", msg.action, msg.err)
			m.notice = ""
			return m, nil
		}
		m.err = nil
		m.notice = msg.resp.Message
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.feed != nil {
			_ = m.feed.Close()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Disconnect):
		return m.startCommand("disconnect")

	case key.Matches(msg, m.keys.Reconnect):
		return m.startCommand("reconnect")
	}
	return m, nil
}

func (m Model) startCommand(action string) (tea.Model, tea.Cmd) {
	if m.pending != "" || m.ctrl == nil {
		return m, nil
	}
	m.pending = action
	m.notice = ""
	return m, sendCommand(m.ctrl, action)
}

func (m *Model) apply(ev portal.Event) {
	prev := m.status
	m.status = ev.Status

	var text string
	switch ev.Type {
	case portal.EventConnected:
		text = fmt.Sprintf("connected to %s as %s", ev.Status.SSID, ev.Status.IP)
	case portal.EventFailed:
		text = "failed: " + ev.Reason
	default:
		if prev.State == ev.Status.State && len(m.history) > 0 {
			return
		}
		text = ev.Status.State.String()
		if ev.Status.LastEvent != "" {
			text += " (" + ev.Status.LastEvent + ")"
		}
	}
	m.push(ev.Time, text)
}

func (m *Model) push(at time.Time, text string) {
	if at.IsZero() {
		at = time.Now()
	}
	m.history = append(m.history, historyEntry{at: at, text: text})
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("WIFIAPP MONITOR"))
	b.WriteString(subtitleStyle.Render(m.Source))
	b.WriteString("\n")

	s := m.status
	state := stateStyle(s.State).Render(s.State.String())
	if s.State == wifiapp.StateConnecting || s.State == wifiapp.StateDisconnecting {
		state = m.spinner.View() + " " + state
	}

	rows := []string{
		row("State", state),
		row("Network", orDash(s.SSID)),
		row("Address", orDash(s.IP)),
		row("Retries", fmt.Sprintf("%d/%d", s.Retries, s.MaxRetries)),
		row("Session", strconv.FormatUint(s.Session, 10)),
		row("Source", s.Source.String()),
	}
	if s.Reason != "" {
		rows = append(rows, row("Reason", s.Reason))
	}
	b.WriteString(boxStyle(m.width).Render(strings.Join(rows, "\n")))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Recent events"))
	b.WriteString("\n")
	if len(m.history) == 0 {
		b.WriteString(eventTimeStyle.Render("  waiting for events..."))
		b.WriteString("\n")
	}
	for i := len(m.history) - 1; i >= 0; i-- {
		e := m.history[i]
		b.WriteString("  " + eventTimeStyle.Render(e.at.Format("15:04:05")) + "  " + valueStyle.Render(e.text) + "\n")
	}

	switch {
	case m.err != nil:
		b.WriteString("\n" + errorStyle.Render("✗ "+m.err.Error()) + "\n")
	case m.pending != "":
		b.WriteString("\n" + m.spinner.View() + " sending " + m.pending + "...\n")
	case m.notice != "":
		b.WriteString("\n" + noticeStyle.Render("✓ "+m.notice) + "\n")
	}
	if !m.live && m.err == nil {
		b.WriteString(errorStyle.Render("feed disconnected") + "\n")
	}

	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func row(k, v string) string {
	return keyStyle.Render(k) + valueStyle.Render(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
