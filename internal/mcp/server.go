// Package mcp exposes the store as callable tools over stdio for agent
// harnesses. Thin adapter: identity comes from the environment, results
// are JSON text blocks.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hasna/convo/internal/core"
	"github.com/hasna/convo/internal/identity"
	"github.com/hasna/convo/internal/storage"
)

// Version reported during the MCP handshake.
const Version = "0.1.0"

// Serve runs the stdio tool server until the client disconnects.
func Serve(store storage.Store) error {
	s := New(store)
	return server.ServeStdio(s)
}

// New builds the MCP server with every tool registered.
func New(store storage.Store) *server.MCPServer {
	s := server.NewMCPServer("conversations", Version)
	a := &adapter{store: store}

	s.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send a direct message to another agent. The sender is resolved from the CONVERSATIONS_AGENT_ID env var."),
		mcp.WithString("to", mcp.Required(), mcp.Description("Recipient agent ID")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Message content")),
		mcp.WithString("session_id", mcp.Description("Session ID (derived if omitted)")),
		mcp.WithString("priority", mcp.Description("low, normal, high or urgent")),
		mcp.WithString("working_dir", mcp.Description("Working directory context")),
		mcp.WithString("repository", mcp.Description("Repository context")),
		mcp.WithString("branch", mcp.Description("Branch context")),
		mcp.WithString("metadata", mcp.Description("JSON metadata object")),
	), a.sendMessage)

	s.AddTool(mcp.NewTool("read_messages",
		mcp.WithDescription("Read messages with optional filters, oldest first."),
		mcp.WithString("session_id", mcp.Description("Filter by session ID")),
		mcp.WithString("from", mcp.Description("Filter by sender")),
		mcp.WithString("to", mcp.Description("Filter by recipient")),
		mcp.WithString("channel", mcp.Description("Filter by channel")),
		mcp.WithNumber("since_id", mcp.Description("Only messages with id greater than this")),
		mcp.WithNumber("limit", mcp.Description("Max messages to return")),
		mcp.WithBoolean("unread_only", mcp.Description("Only unread messages")),
	), a.readMessages)

	s.AddTool(mcp.NewTool("reply",
		mcp.WithDescription("Reply to a message by ID, reusing its session and addressing the original sender."),
		mcp.WithNumber("message_id", mcp.Required(), mcp.Description("ID of the message to reply to")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Reply content")),
		mcp.WithString("priority", mcp.Description("low, normal, high or urgent")),
	), a.reply)

	s.AddTool(mcp.NewTool("mark_read",
		mcp.WithDescription("Mark message IDs as read for the current agent."),
		mcp.WithArray("ids", mcp.Required(), mcp.Description("Message IDs to mark read")),
	), a.markRead)

	s.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List conversation sessions, most recently active first."),
		mcp.WithString("agent", mcp.Description("Only sessions involving this agent")),
	), a.listSessions)

	s.AddTool(mcp.NewTool("create_channel",
		mcp.WithDescription("Create a channel; the creator is auto-joined."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Channel name")),
		mcp.WithString("description", mcp.Description("Channel description")),
	), a.createChannel)

	s.AddTool(mcp.NewTool("list_channels",
		mcp.WithDescription("List all channels with member and message counts."),
	), a.listChannels)

	s.AddTool(mcp.NewTool("send_to_channel",
		mcp.WithDescription("Send a message to a channel. All members can see it."),
		mcp.WithString("channel", mcp.Required(), mcp.Description("Channel name")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Message content")),
		mcp.WithString("priority", mcp.Description("low, normal, high or urgent")),
	), a.sendToChannel)

	s.AddTool(mcp.NewTool("read_channel",
		mcp.WithDescription("Read messages from a channel, oldest first."),
		mcp.WithString("channel", mcp.Required(), mcp.Description("Channel name")),
		mcp.WithNumber("since_id", mcp.Description("Only messages with id greater than this")),
		mcp.WithNumber("limit", mcp.Description("Max messages to return")),
	), a.readChannel)

	s.AddTool(mcp.NewTool("mark_channel_read",
		mcp.WithDescription("Mark everyone else's channel messages read for the current agent."),
		mcp.WithString("channel", mcp.Required(), mcp.Description("Channel name")),
	), a.markChannelRead)

	s.AddTool(mcp.NewTool("join_channel",
		mcp.WithDescription("Join a channel."),
		mcp.WithString("channel", mcp.Required(), mcp.Description("Channel name to join")),
	), a.joinChannel)

	s.AddTool(mcp.NewTool("leave_channel",
		mcp.WithDescription("Leave a channel."),
		mcp.WithString("channel", mcp.Required(), mcp.Description("Channel name to leave")),
	), a.leaveChannel)

	s.AddTool(mcp.NewTool("channel_members",
		mcp.WithDescription("List channel members by join time."),
		mcp.WithString("channel", mcp.Required(), mcp.Description("Channel name")),
	), a.channelMembers)

	return s
}

type adapter struct {
	store storage.Store
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func (a *adapter) sendMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := identity.Require("")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var metadata map[string]any
	if raw := req.GetString("metadata", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			return mcp.NewToolResultError("metadata is not valid JSON: " + err.Error()), nil
		}
	}
	msg, err := a.store.Append(storage.AppendOptions{
		From:       from,
		To:         to,
		Content:    content,
		SessionID:  req.GetString("session_id", ""),
		Priority:   core.Priority(req.GetString("priority", "")),
		WorkingDir: req.GetString("working_dir", ""),
		Repository: req.GetString("repository", ""),
		Branch:     req.GetString("branch", ""),
		Metadata:   metadata,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(msg)
}

func (a *adapter) readMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msgs, err := a.store.Query(storage.MessageFilter{
		SessionID:  req.GetString("session_id", ""),
		From:       req.GetString("from", ""),
		To:         req.GetString("to", ""),
		Channel:    req.GetString("channel", ""),
		SinceID:    int64(req.GetInt("since_id", 0)),
		UnreadOnly: req.GetBool("unread_only", false),
		Limit:      req.GetInt("limit", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if msgs == nil {
		msgs = []core.Message{}
	}
	return jsonResult(msgs)
}

func (a *adapter) reply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := identity.Require("")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireInt("message_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	original, err := a.store.Get(int64(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("message #%d not found", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg, err := a.store.Append(storage.AppendOptions{
		From:      from,
		To:        original.From,
		Content:   content,
		SessionID: original.SessionID,
		Channel:   original.Channel,
		Priority:  core.Priority(req.GetString("priority", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(msg)
}

func (a *adapter) markRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agent, err := identity.Require("")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, ok := req.GetArguments()["ids"].([]any)
	if !ok {
		return mcp.NewToolResultError("ids must be an array of message IDs"), nil
	}
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		n, ok := v.(float64)
		if !ok {
			return mcp.NewToolResultError("ids must be an array of message IDs"), nil
		}
		ids = append(ids, int64(n))
	}
	count, err := a.store.MarkRead(ids, agent)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]int{"marked_read": count})
}

func (a *adapter) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := a.store.ListSessions(req.GetString("agent", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if sessions == nil {
		sessions = []core.Session{}
	}
	return jsonResult(sessions)
}

func (a *adapter) createChannel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agent, err := identity.Require("")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	channel, err := a.store.CreateChannel(name, agent, req.GetString("description", ""))
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return mcp.NewToolResultError(fmt.Sprintf("channel #%s already exists", name)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(channel)
}

func (a *adapter) listChannels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channels, err := a.store.ListChannels()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if channels == nil {
		channels = []core.ChannelInfo{}
	}
	return jsonResult(channels)
}

func (a *adapter) sendToChannel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := identity.Require("")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	channel, err := req.RequireString("channel")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// The store accepts any channel string; existence is checked here so
	// agents get a clear error instead of a silent orphan message.
	if _, err := a.store.GetChannel(channel); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("channel #%s not found", channel)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg, err := a.store.Append(storage.AppendOptions{
		From:     from,
		Content:  content,
		Channel:  channel,
		Priority: core.Priority(req.GetString("priority", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(msg)
}

func (a *adapter) readChannel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channel, err := req.RequireString("channel")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msgs, err := a.store.Query(storage.MessageFilter{
		Channel: channel,
		SinceID: int64(req.GetInt("since_id", 0)),
		Limit:   req.GetInt("limit", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if msgs == nil {
		msgs = []core.Message{}
	}
	return jsonResult(msgs)
}

func (a *adapter) markChannelRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agent, err := identity.Require("")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	channel, err := req.RequireString("channel")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	count, err := a.store.MarkChannelRead(channel, agent)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]int{"marked_read": count})
}

func (a *adapter) joinChannel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agent, err := identity.Require("")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	channel, err := req.RequireString("channel")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ok, err := a.store.JoinChannel(channel, agent)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("channel #%s not found", channel)), nil
	}
	return jsonResult(map[string]any{"channel": channel, "agent": agent, "joined": true})
}

func (a *adapter) leaveChannel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agent, err := identity.Require("")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	channel, err := req.RequireString("channel")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	left, err := a.store.LeaveChannel(channel, agent)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"channel": channel, "agent": agent, "left": left})
}

func (a *adapter) channelMembers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channel, err := req.RequireString("channel")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	members, err := a.store.ChannelMembers(channel)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if members == nil {
		members = []core.ChannelMember{}
	}
	return jsonResult(members)
}
