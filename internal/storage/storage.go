package storage

import (
	"time"

	"github.com/hasna/convo/internal/core"
)

// AppendOptions are the caller-supplied fields for one message append.
// From, To and Content are required (non-empty after trimming). SessionID
// is derived when empty; Channel forces the synthetic channel session id.
type AppendOptions struct {
	From       string
	To         string
	Content    string
	SessionID  string
	Channel    string
	Priority   core.Priority
	WorkingDir string
	Repository string
	Branch     string
	Metadata   map[string]any
}

// MessageFilter is a conjunction of optional predicates over the message
// log. Zero values mean "no constraint". Since and SinceID are strict
// (created_at > Since, id > SinceID).
type MessageFilter struct {
	SessionID  string
	From       string
	To         string
	Channel    string
	Since      time.Time
	SinceID    int64
	UnreadOnly bool
	Limit      int
	Descending bool
}

// Stats are the dashboard's aggregate counts, computed at read time.
type Stats struct {
	TotalMessages  int `json:"total_messages"`
	TotalSessions  int `json:"total_sessions"`
	TotalChannels  int `json:"total_channels"`
	UnreadMessages int `json:"unread_messages"`
}

// Store is the full surface the collaborators (CLI, dashboard, MCP, TUI,
// poller) are written against.
type Store interface {
	// Message log
	Append(opts AppendOptions) (core.Message, error)
	Query(filter MessageFilter) ([]core.Message, error)
	Get(id int64) (core.Message, error)
	MarkRead(ids []int64, reader string) (int, error)
	MarkSessionRead(sessionID, reader string) (int, error)
	MarkChannelRead(channel, reader string) (int, error)

	// Session aggregation (derived, never persisted)
	ListSessions(agent string) ([]core.Session, error)
	GetSession(sessionID, agent string) (core.Session, error)

	// Channel directory
	CreateChannel(name, createdBy, description string) (core.Channel, error)
	ListChannels() ([]core.ChannelInfo, error)
	GetChannel(name string) (core.ChannelInfo, error)
	JoinChannel(name, agent string) (bool, error)
	LeaveChannel(name, agent string) (bool, error)
	ChannelMembers(name string) ([]core.ChannelMember, error)
	IsChannelMember(name, agent string) (bool, error)

	Stats() (Stats, error)
	Close() error
}
