package core

import "time"

// Priority orders a message's urgency. Stored as plain text; the store
// rejects values outside this set.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Message is one row in the message log. Immutable once written except for
// ReadAt, which transitions nil -> non-nil exactly once.
type Message struct {
	ID         int64          `json:"id"`
	SessionID  string         `json:"session_id"`
	From       string         `json:"from_agent"`
	To         string         `json:"to_agent"`
	Channel    string         `json:"channel,omitempty"`
	Content    string         `json:"content"`
	Priority   Priority       `json:"priority"`
	WorkingDir string         `json:"working_dir,omitempty"`
	Repository string         `json:"repository,omitempty"`
	Branch     string         `json:"branch,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	ReadAt     *time.Time     `json:"read_at,omitempty"`
}

// Read reports whether the message has been marked read.
func (m Message) Read() bool { return m.ReadAt != nil }

// Session is a conversation thread derived from the message log. It is
// never persisted; every field is recomputed from messages on demand.
// UnreadCount is relative to the agent the aggregation was queried for and
// is zero when no agent was given.
type Session struct {
	SessionID     string    `json:"session_id"`
	Participants  []string  `json:"participants"`
	LastMessageAt time.Time `json:"last_message_at"`
	MessageCount  int       `json:"message_count"`
	UnreadCount   int       `json:"unread_count"`
}

// Channel is a named broadcast group. Messages sent to a channel share the
// synthetic session id "channel:" + Name.
type Channel struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChannelInfo is a channel plus counts computed at read time.
type ChannelInfo struct {
	Channel
	MemberCount  int `json:"member_count"`
	MessageCount int `json:"message_count"`
}

// ChannelMember is one membership row, keyed by (channel, agent).
type ChannelMember struct {
	Channel  string    `json:"channel"`
	Agent    string    `json:"agent"`
	JoinedAt time.Time `json:"joined_at"`
}

// ChannelSessionPrefix prefixes the synthetic session id shared by all
// messages in a channel.
const ChannelSessionPrefix = "channel:"

// ChannelSessionID returns the synthetic session id for a channel.
func ChannelSessionID(channel string) string {
	return ChannelSessionPrefix + channel
}
