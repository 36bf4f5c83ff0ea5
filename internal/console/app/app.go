package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/livedev/devserver/internal/console/client"
	"github.com/livedev/devserver/internal/console/theme"
	"github.com/livedev/devserver/internal/console/views/eventlog"
	"github.com/livedev/devserver/internal/console/views/status"
	"github.com/livedev/devserver/internal/ws"
)

const statusInterval = 5 * time.Second

// statusMsg carries the result of one /api/status poll.
type statusMsg struct {
	status *ws.StatusResponse
	err    error
}

type statusTickMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	ws     *client.WSClient
	http   *client.HTTPClient
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int

	input     textinput.Model
	log       eventlog.Model
	statusBar status.Model

	// request id -> command line, for labelling replies
	pending map[string]string

	relay     bool
	connected bool
}

// New creates the root model.
func New(wsClient *client.WSClient, httpClient *client.HTTPClient) Model {
	ctx, cancel := context.WithCancel(context.Background())

	input := textinput.New()
	input.Prompt = "$ "
	input.Placeholder = "command to run on the server"
	input.Focus()

	return Model{
		ws:        wsClient,
		http:      httpClient,
		ctx:       ctx,
		cancel:    cancel,
		keys:      DefaultKeyMap(),
		input:     input,
		log:       eventlog.New(),
		statusBar: status.New(),
		pending:   make(map[string]string),
	}
}

// Init starts the WebSocket connection and the status poll.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.ws.Listen(m.ctx), m.pollStatus(), textinput.Blink)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.input.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case client.WSConnectedMsg:
		m.connected = true
		m.statusBar.Connected = true
		m.log.Add("sys", "connected")
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSDisconnectedMsg:
		m.connected = false
		m.statusBar.Connected = false
		if msg.Err != nil {
			m.log.Add("sys", "disconnected: "+msg.Err.Error())
		}
		return m, m.ws.Listen(m.ctx)

	case client.WSServerMsg:
		m.handleServerMessage(msg.Msg)
		return m, m.ws.ReadLoop(m.ctx)

	case statusMsg:
		if msg.err == nil {
			m.statusBar.Server = msg.status
		}
		return m, tea.Tick(statusInterval, func(time.Time) tea.Msg { return statusTickMsg{} })

	case statusTickMsg:
		return m, m.pollStatus()

	case client.SentMsg:
		m.handleSent(msg)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleServerMessage(msg ws.ServerMessage) {
	switch msg.Type {
	case ws.MsgReload:
		m.log.Add("reload", msg.Body)
	case ws.MsgCSSUpdate:
		m.log.Add("css", msg.Body)
	case ws.MsgJSUpdate:
		m.log.Add("js", msg.Body)
	case ws.MsgNotifyUpdate:
		m.log.Add("upd", msg.Body)
	case ws.MsgCmdResult, ws.MsgCmdError:
		kind := "out"
		if msg.Type == ws.MsgCmdError {
			kind = "err"
		}
		if line, ok := m.pending[msg.RequestID]; ok {
			delete(m.pending, msg.RequestID)
			m.log.Add("sys", "done: "+line)
		}
		if msg.Body != "" {
			m.log.Add(kind, msg.Body)
		}
	case ws.MsgBroadcast:
		m.log.Add("msg", "#"+strconv.FormatUint(uint64(msg.SenderID), 10)+" "+msg.Body)
	default:
		m.log.Add("sys", "unknown message "+string(msg.Type))
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.ToggleRelay):
		m.relay = !m.relay
		m.statusBar.Relay = m.relay
		if m.relay {
			m.input.Prompt = "» "
			m.input.Placeholder = "message for the other clients"
		} else {
			m.input.Prompt = "$ "
			m.input.Placeholder = "command to run on the server"
		}
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.log.ScrollUp(5)
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.log.ScrollDown(5)
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.log.Clear()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.input.SetValue("")
		return m, nil

	case key.Matches(msg, m.keys.Send):
		cmd := m.submit()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit queues the input line; the write itself runs as a command.
func (m *Model) submit() tea.Cmd {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return nil
	}
	if !m.connected {
		m.log.Add("sys", "not connected, dropped: "+line)
		return nil
	}
	m.input.SetValue("")

	if m.relay {
		_, cmd := m.ws.Send(ws.RequestBroadcast, line)
		return cmd
	}

	id, cmd := m.ws.Send(ws.RequestCommand, line)
	m.pending[id] = line
	m.log.Add("$", line)
	return cmd
}

func (m *Model) handleSent(msg client.SentMsg) {
	if msg.Err != nil {
		delete(m.pending, msg.RequestID)
		m.log.Add("err", "send failed: "+msg.Err.Error())
		return
	}
	if msg.Kind == ws.RequestBroadcast {
		m.log.Add("msg", "me "+msg.Payload)
	}
}

func (m Model) pollStatus() tea.Cmd {
	httpClient := m.http
	return func() tea.Msg {
		if httpClient == nil {
			return statusMsg{}
		}
		s, err := httpClient.GetStatus()
		return statusMsg{status: s, err: err}
	}
}

// View renders the full console.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{m.statusBar.View()}
	if !m.connected {
		sections = append(sections, theme.StyleBanner.Render("DISCONNECTED · Reconnecting..."))
	}

	help := theme.StyleDimmed.Render("  enter:send  ctrl+b:cmd/relay  pgup/pgdn:scroll  ctrl+l:clear  ctrl+c:quit")
	used := lipgloss.Height(lipgloss.JoinVertical(lipgloss.Left, sections...)) + 3
	sections = append(sections,
		m.log.View(m.width, m.height-used),
		m.input.View(),
		help,
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
