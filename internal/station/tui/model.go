// Package tui is the terminal front-end of the capture station. It translates
// key input into the controller's press/release/quit events and renders the
// controller's state.
//
// Terminals deliver no key-release events, so push-to-talk is emulated as
// tap-to-toggle: the first space tap is the press, the second tap synthesizes
// the release. The controller itself stays agnostic of this emulation.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mwirth/ironlog/internal/journal"
	"github.com/mwirth/ironlog/internal/station"
)

// UpdateMsg wraps a controller snapshot as a bubbletea message.
type UpdateMsg struct {
	Update station.Update
}

type eventSentMsg struct{}

// Model is the root bubbletea model of the station TUI.
type Model struct {
	events   chan<- station.KeyEvent
	updates  <-chan station.Update
	degraded bool

	state      station.State
	last       *journal.Entry
	capturedAt time.Time
	width      int
	height     int
}

// New creates a Model wired to a controller: key events go out on events,
// controller snapshots come in on updates.
func New(events chan<- station.KeyEvent, updates <-chan station.Update, degraded bool) Model {
	return Model{
		events:   events,
		updates:  updates,
		degraded: degraded,
		state:    station.StateIdle,
	}
}

// Init starts listening for controller updates.
func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

// waitForUpdate blocks on the controller's update channel.
func waitForUpdate(updates <-chan station.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return tea.Quit()
		}
		return UpdateMsg{Update: u}
	}
}

// sendKey delivers one key event to the controller without blocking the UI
// loop; the controller may be busy in its synchronous pipeline.
func sendKey(events chan<- station.KeyEvent, kind station.KeyKind) tea.Cmd {
	return func() tea.Msg {
		events <- station.KeyEvent{Kind: kind, At: time.Now()}
		return eventSentMsg{}
	}
}

// Update processes messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case UpdateMsg:
		m.state = msg.Update.State
		if msg.Update.Last != nil {
			m.last = msg.Update.Last
		}
		if m.state == station.StateCapturing {
			m.capturedAt = time.Now()
		}
		if m.state == station.StateTerminated {
			return m, tea.Quit
		}
		return m, waitForUpdate(m.updates)

	case eventSentMsg:
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, sendKey(m.events, station.KeyQuit)

	case " ":
		// Tap-to-toggle: second tap stands in for the key-up the
		// terminal never delivers.
		if m.state == station.StateCapturing {
			return m, sendKey(m.events, station.KeyRelease)
		}
		return m, sendKey(m.events, station.KeyPress)
	}
	return m, nil
}

// View renders the station UI.
func (m Model) View() string {
	var sections []string

	title := titleStyle.Render("IRONLOG")
	if m.degraded {
		title += " " + warnStyle.Render("[NO AUDIO SOURCE — SIMULATED]")
	}
	sections = append(sections, title)
	sections = append(sections, m.renderStatus())
	sections = append(sections, "")
	sections = append(sections, m.renderLast())
	sections = append(sections, "")
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderStatus() string {
	switch m.state {
	case station.StateCapturing:
		elapsed := ""
		if !m.capturedAt.IsZero() {
			elapsed = dimStyle.Render(fmt.Sprintf("  %.0fs", time.Since(m.capturedAt).Seconds()))
		}
		return recordingDotStyle.Render("● REC") + elapsed
	case station.StateTerminated:
		return dimStyle.Render("shutting down")
	default:
		return idleDotStyle.Render("○ IDLE")
	}
}

func (m Model) renderLast() string {
	if m.last == nil {
		return dimStyle.Render("  Tap Space to record, tap again to stop.")
	}
	e := m.last
	switch e.Status {
	case journal.StatusLogged:
		line := okStyle.Render("  ✓ logged ") +
			valueStyle.Render(fmt.Sprintf("%s %g %s", e.Category, e.Value, e.Unit))
		if e.Simulated {
			line += " " + warnStyle.Render("(simulated)")
		}
		return line + "\n" + dimStyle.Render(fmt.Sprintf("    %q  conf %.3f", e.Transcript, e.Confidence))
	case journal.StatusNoAudio:
		return warnStyle.Render("  no audio captured, nothing logged")
	default:
		return errorStyle.Render("  ✗ "+string(e.Status)) + "\n" +
			dimStyle.Render("    "+e.Error)
	}
}

func (m Model) renderFooter() string {
	parts := []string{
		footerKeyStyle.Render("Space") + footerDescStyle.Render(" Record/Stop"),
		footerKeyStyle.Render("q") + footerDescStyle.Render(" Quit"),
	}
	return strings.Join(parts, "  ")
}
