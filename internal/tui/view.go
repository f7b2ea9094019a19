package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hasna/convo/internal/core"
)

const sessionPaneWidth = 32

var (
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))
	focusedPaneStyle = paneStyle.
				BorderForeground(lipgloss.Color("62"))
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("62"))
	unreadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true)
	senderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
	ownSenderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("78")).
			Bold(true)
	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
	urgentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))
)

func (m Model) messagePaneWidth() int {
	w := m.width - sessionPaneWidth - 4
	if w < 20 {
		w = 20
	}
	return w
}

// paneHeight is the inner height shared by both panes: total minus the
// composer row, the status row and the borders.
func (m Model) paneHeight() int {
	h := m.height - 5
	if h < 3 {
		h = 3
	}
	return h
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	left := m.renderSessions()
	right := m.view.View()

	leftStyle, rightStyle := paneStyle, paneStyle
	switch m.focus {
	case focusSessions:
		leftStyle = focusedPaneStyle
	case focusMessages, focusComposer:
		rightStyle = focusedPaneStyle
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		leftStyle.Width(sessionPaneWidth).Height(m.paneHeight()).Render(left),
		rightStyle.Width(m.messagePaneWidth()).Height(m.paneHeight()).Render(right),
	)

	composer := "  " + m.composer.View()
	if m.focus != focusComposer {
		composer = statusStyle.Render("  i: compose  r: mark read  tab: switch pane  q: quit")
	}

	status := ""
	if m.status != "" {
		status = errorStyle.Render(" " + m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, composer, status)
}

func (m Model) renderSessions() string {
	if len(m.sessions) == 0 {
		return statusStyle.Render("no sessions yet")
	}
	var b strings.Builder
	for i, s := range m.sessions {
		if i >= m.paneHeight() {
			break
		}
		line := sessionLabel(s, m.agent)
		if s.UnreadCount > 0 {
			line = fmt.Sprintf("%s (%d)", line, s.UnreadCount)
		}
		line = truncate(line, sessionPaneWidth-2)
		switch {
		case i == m.selected:
			line = selectedStyle.Render(line)
		case s.UnreadCount > 0:
			line = unreadStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// sessionLabel names a session for the list: "#channel" for channel
// sessions, otherwise the participants other than the viewer.
func sessionLabel(s core.Session, agent string) string {
	if name, ok := strings.CutPrefix(s.SessionID, core.ChannelSessionPrefix); ok {
		return "#" + name
	}
	var others []string
	for _, p := range s.Participants {
		if p != agent {
			others = append(others, p)
		}
	}
	if len(others) == 0 {
		return s.SessionID
	}
	return strings.Join(others, ", ")
}

func (m Model) renderMessages() string {
	if len(m.messages) == 0 {
		return statusStyle.Render("no messages")
	}
	width := m.messagePaneWidth() - 2
	var b strings.Builder
	for _, msg := range m.messages {
		sender := senderStyle
		if msg.From == m.agent {
			sender = ownSenderStyle
		}
		header := fmt.Sprintf("%s %s",
			sender.Render(msg.From),
			timeStyle.Render(msg.CreatedAt.Local().Format("Jan 2 15:04")))
		if msg.Priority == core.PriorityUrgent || msg.Priority == core.PriorityHigh {
			header += " " + urgentStyle.Render("["+string(msg.Priority)+"]")
		}
		b.WriteString(header)
		b.WriteByte('\n')
		b.WriteString(wrap(msg.Content, width))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, max int) string {
	if max <= 0 || lipgloss.Width(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// wrap breaks content at word boundaries; words longer than the width
// are left intact and overflow.
func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if len(line) <= width {
			out = append(out, line)
			continue
		}
		var cur string
		for _, word := range strings.Fields(line) {
			switch {
			case cur == "":
				cur = word
			case len(cur)+1+len(word) <= width:
				cur += " " + word
			default:
				out = append(out, cur)
				cur = word
			}
		}
		if cur != "" {
			out = append(out, cur)
		}
	}
	return strings.Join(out, "\n")
}
