// Package tui is a terminal client for the exchange: a session list on
// the left, the selected conversation on the right, and a composer for
// replies. Data refreshes on a fixed tick so new messages appear while
// the view is open.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hasna/convo/internal/core"
	"github.com/hasna/convo/internal/storage"
)

// refreshInterval is how often the session list and the open
// conversation are re-read from the store.
const refreshInterval = 500 * time.Millisecond

// focusRegion identifies which pane receives keyboard input.
type focusRegion int

const (
	focusSessions focusRegion = iota
	focusMessages
	focusComposer
)

// refreshMsg drives the periodic re-read.
type refreshMsg struct{}

// sessionsMsg carries a fresh session listing.
type sessionsMsg struct {
	sessions []core.Session
	err      error
}

// messagesMsg carries the messages of one session.
type messagesMsg struct {
	sessionID string
	messages  []core.Message
	err       error
}

// sentMsg reports the outcome of a composer send.
type sentMsg struct {
	err error
}

// Model is the bubbletea model for the exchange viewer.
type Model struct {
	store storage.Store
	agent string

	sessions []core.Session
	messages []core.Message
	selected int
	focus    focusRegion

	view     viewport.Model
	composer textinput.Model

	width  int
	height int
	ready  bool
	status string
}

// New builds a model reading from store as agent.
func New(store storage.Store, agent string) Model {
	composer := textinput.New()
	composer.Placeholder = "message"
	composer.CharLimit = 0
	return Model{
		store:    store,
		agent:    agent,
		composer: composer,
	}
}

// Run opens the TUI on the alternate screen and blocks until quit.
func Run(store storage.Store, agent string) error {
	_, err := tea.NewProgram(New(store, agent), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadSessions(), scheduleRefresh())
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func (m Model) loadSessions() tea.Cmd {
	store, agent := m.store, m.agent
	return func() tea.Msg {
		sessions, err := store.ListSessions(agent)
		return sessionsMsg{sessions: sessions, err: err}
	}
}

func (m Model) loadMessages(sessionID string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		messages, err := store.Query(storage.MessageFilter{SessionID: sessionID})
		return messagesMsg{sessionID: sessionID, messages: messages, err: err}
	}
}

// markVisibleRead marks the open session read for the viewing agent.
// Channel sessions use the channel read rule so the viewer's own
// messages stay untouched.
func (m Model) markVisibleRead(sessionID string) tea.Cmd {
	store, agent := m.store, m.agent
	return func() tea.Msg {
		if agent == "" {
			return nil
		}
		if name, ok := strings.CutPrefix(sessionID, core.ChannelSessionPrefix); ok {
			store.MarkChannelRead(name, agent)
		} else {
			store.MarkSessionRead(sessionID, agent)
		}
		return nil
	}
}

func (m Model) send(content string) tea.Cmd {
	store, agent := m.store, m.agent
	session := m.currentSession()
	var messages []core.Message
	if len(m.messages) > 0 {
		messages = m.messages
	}
	return func() tea.Msg {
		if session == nil {
			return sentMsg{err: fmt.Errorf("no session selected")}
		}
		opts := storage.AppendOptions{
			From:      agent,
			Content:   content,
			SessionID: session.SessionID,
		}
		if name, ok := strings.CutPrefix(session.SessionID, core.ChannelSessionPrefix); ok {
			opts.Channel = name
			opts.SessionID = ""
		} else {
			opts.To = counterpart(session.Participants, agent, messages)
		}
		_, err := store.Append(opts)
		return sentMsg{err: err}
	}
}

// counterpart picks who a direct reply addresses: the other
// participant, or for multi-party sessions the sender of the latest
// message not authored by agent.
func counterpart(participants []string, agent string, messages []core.Message) string {
	others := make([]string, 0, len(participants))
	for _, p := range participants {
		if p != agent {
			others = append(others, p)
		}
	}
	if len(others) == 1 {
		return others[0]
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].From != agent {
			return messages[i].From
		}
	}
	if len(others) > 0 {
		return others[0]
	}
	return agent
}

func (m Model) currentSession() *core.Session {
	if m.selected < 0 || m.selected >= len(m.sessions) {
		return nil
	}
	return &m.sessions[m.selected]
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.view.Width = m.messagePaneWidth()
		m.view.Height = m.paneHeight()
		m.composer.Width = m.messagePaneWidth() - 4
		m.ready = true
		return m, nil

	case refreshMsg:
		cmds := []tea.Cmd{m.loadSessions(), scheduleRefresh()}
		if s := m.currentSession(); s != nil {
			cmds = append(cmds, m.loadMessages(s.SessionID))
		}
		return m, tea.Batch(cmds...)

	case sessionsMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.sessions = msg.sessions
		if m.selected >= len(m.sessions) {
			m.selected = len(m.sessions) - 1
		}
		if m.selected < 0 {
			m.selected = 0
		}
		if s := m.currentSession(); s != nil && len(m.messages) == 0 {
			return m, m.loadMessages(s.SessionID)
		}
		return m, nil

	case messagesMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		if s := m.currentSession(); s == nil || s.SessionID != msg.sessionID {
			return m, nil
		}
		atBottom := m.view.AtBottom()
		grew := len(msg.messages) > len(m.messages)
		m.messages = msg.messages
		m.view.SetContent(m.renderMessages())
		if atBottom || grew {
			m.view.GotoBottom()
		}
		return m, nil

	case sentMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.status = ""
		if s := m.currentSession(); s != nil {
			return m, m.loadMessages(s.SessionID)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.focus == focusComposer {
		switch msg.Type {
		case tea.KeyEscape:
			m.focus = focusMessages
			m.composer.Blur()
			return m, nil
		case tea.KeyEnter:
			content := strings.TrimSpace(m.composer.Value())
			if content == "" {
				return m, nil
			}
			m.composer.Reset()
			return m, m.send(content)
		case tea.KeyCtrlC:
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		if m.focus == focusSessions {
			m.focus = focusMessages
		} else {
			m.focus = focusSessions
		}
		return m, nil
	case "i", "enter":
		if m.currentSession() == nil {
			return m, nil
		}
		m.focus = focusComposer
		m.composer.Focus()
		return m, textinput.Blink
	case "r":
		if s := m.currentSession(); s != nil {
			return m, tea.Sequence(m.markVisibleRead(s.SessionID), m.loadSessions())
		}
		return m, nil
	}

	if m.focus == focusSessions {
		switch msg.String() {
		case "up", "k":
			if m.selected > 0 {
				m.selected--
				m.messages = nil
				return m, m.loadMessages(m.sessions[m.selected].SessionID)
			}
		case "down", "j":
			if m.selected < len(m.sessions)-1 {
				m.selected++
				m.messages = nil
				return m, m.loadMessages(m.sessions[m.selected].SessionID)
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}
