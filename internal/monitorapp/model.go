package monitorapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sunbay-developer/taplink-sdk-go/taplink"
)

const (
	tickInterval  = 1 * time.Second
	maxEventLines = 12
)

type tickMsg time.Time

type eventMsg struct {
	at      time.Time
	kind    string
	message string
}

// Model is the live connection-state view driven by a *taplink.Client's
// Listener callbacks (SPEC_FULL §2 A5).
type Model struct {
	client    *taplink.Client
	events    chan eventMsg
	log       []eventMsg
	connected bool
	deviceID  string
	started   time.Time
	width     int
}

// New builds a Model and the Listener that feeds it. Pass the returned
// Listener to client.Connect or client.StartupAutoConnect before
// starting the bubbletea program.
func New(client *taplink.Client) (*Model, *taplink.Listener) {
	m := &Model{
		client:  client,
		events:  make(chan eventMsg, 64),
		started: time.Now(),
	}
	listener := &taplink.Listener{
		OnWaitingConnect: func() {
			m.push("waiting", "waiting for a device to connect")
		},
		OnConnected: func(deviceID, taproVersion string) {
			m.push("connected", fmt.Sprintf("device=%s tapro=%s", deviceID, taproVersion))
		},
		OnDisconnected: func(reason string) {
			m.push("disconnected", reason)
		},
		OnError: func(code, message string) {
			m.push("error", fmt.Sprintf("%s: %s", code, message))
		},
	}
	return m, listener
}

func (m *Model) push(kind, message string) {
	select {
	case m.events <- eventMsg{at: time.Now(), kind: kind, message: message}:
	default:
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), waitForEvent(m.events))
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitForEvent(events chan eventMsg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "d":
			_ = m.client.Disconnect()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m.connected = m.client.IsConnected()
		m.deviceID = m.client.DeviceID()
		return m, tick()

	case eventMsg:
		switch msg.kind {
		case "connected":
			m.connected = true
		case "disconnected", "error":
			m.connected = false
		}
		m.log = append(m.log, msg)
		if len(m.log) > maxEventLines {
			m.log = m.log[len(m.log)-maxEventLines:]
		}
		return m, waitForEvent(m.events)
	}
	return m, nil
}

func (m Model) View() string {
	status := styleRed.Render("disconnected")
	if m.connected {
		status = styleGreen.Render("connected")
	}
	deviceLine := "device: " + styleMuted.Render("(none)")
	if m.deviceID != "" {
		deviceLine = "device: " + m.deviceID
	}

	header := fmt.Sprintf("%s  %s  %s",
		styleTitle.Render("TapLink Connect Monitor"),
		status,
		styleSubtle.Render(time.Since(m.started).Round(time.Second).String()),
	)

	var lines []string
	for _, e := range m.log {
		lines = append(lines, fmt.Sprintf("%s  %-12s %s",
			styleSubtle.Render(e.at.Format("15:04:05")),
			e.kind,
			e.message,
		))
	}
	body := strings.Join(lines, "\n")
	if body == "" {
		body = styleMuted.Render("no events yet")
	}

	footer := styleMuted.Render("q quit · d disconnect")

	return header + "\n" + deviceLine + "\n\n" + styleBox.Render(body) + "\n" + footer
}

// Run starts the bubbletea program, blocking until the user quits.
func Run(ctx context.Context, client *taplink.Client) error {
	model, listener := New(client)
	if !client.StartupAutoConnect(ctx, listener) {
		model.push("waiting", "no persisted connection; use taplinkctl connect or wait for discovery")
	}
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
