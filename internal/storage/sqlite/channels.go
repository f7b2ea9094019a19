package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hasna/convo/internal/core"
	"github.com/hasna/convo/internal/storage"
)

// CreateChannel inserts a channel row and auto-joins the creator. A name
// collision returns ErrDuplicate.
func (s *Store) CreateChannel(name, createdBy, description string) (core.Channel, error) {
	name = strings.TrimSpace(name)
	createdBy = strings.TrimSpace(createdBy)
	if name == "" || createdBy == "" {
		return core.Channel{}, fmt.Errorf("%w: name and created_by required", storage.ErrInvalidArgument)
	}

	createdAt := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO channels (name, description, created_by, created_at) VALUES (?, ?, ?, ?)`,
		name, nullable(description), createdBy, createdAt.Format(timeLayout),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Channel{}, fmt.Errorf("channel %q: %w", name, storage.ErrDuplicate)
		}
		return core.Channel{}, fmt.Errorf("create channel: %w", err)
	}
	if err := s.insertMembership(name, createdBy); err != nil {
		return core.Channel{}, err
	}
	return core.Channel{
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   createdAt,
	}, nil
}

const channelInfoColumns = `c.name, c.description, c.created_by, c.created_at,
	(SELECT COUNT(*) FROM channel_members WHERE channel = c.name) AS member_count,
	(SELECT COUNT(*) FROM messages WHERE channel = c.name) AS message_count`

// ListChannels returns every channel with computed counts, name ascending.
func (s *Store) ListChannels() ([]core.ChannelInfo, error) {
	rows, err := s.db.Query(`SELECT ` + channelInfoColumns + ` FROM channels c ORDER BY c.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []core.ChannelInfo
	for rows.Next() {
		info, err := scanChannelInfo(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, info)
	}
	return channels, rows.Err()
}

// GetChannel returns a single channel with counts, or ErrNotFound.
func (s *Store) GetChannel(name string) (core.ChannelInfo, error) {
	row := s.db.QueryRow(`SELECT `+channelInfoColumns+` FROM channels c WHERE c.name = ?`, name)
	info, err := scanChannelInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ChannelInfo{}, fmt.Errorf("channel %q: %w", name, storage.ErrNotFound)
	}
	return info, err
}

// JoinChannel idempotently adds agent to a channel. Returns false when the
// channel does not exist; a double join is not an error.
func (s *Store) JoinChannel(name, agent string) (bool, error) {
	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM channels WHERE name = ?`, name).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check channel: %w", err)
	}
	if err := s.insertMembership(name, agent); err != nil {
		return false, err
	}
	return true, nil
}

// LeaveChannel removes agent's membership. Returns true only when a row
// existed and was deleted.
func (s *Store) LeaveChannel(name, agent string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM channel_members WHERE channel = ? AND agent = ?`, name, agent)
	if err != nil {
		return false, fmt.Errorf("leave channel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ChannelMembers lists memberships ordered by join time ascending.
func (s *Store) ChannelMembers(name string) ([]core.ChannelMember, error) {
	rows, err := s.db.Query(
		`SELECT channel, agent, joined_at FROM channel_members WHERE channel = ? ORDER BY joined_at ASC`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("channel members: %w", err)
	}
	defer rows.Close()

	var members []core.ChannelMember
	for rows.Next() {
		var (
			m        core.ChannelMember
			joinedAt string
		)
		if err := rows.Scan(&m.Channel, &m.Agent, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.JoinedAt, _ = time.Parse(time.RFC3339Nano, joinedAt)
		members = append(members, m)
	}
	return members, rows.Err()
}

// IsChannelMember reports whether agent has a membership row.
func (s *Store) IsChannelMember(name, agent string) (bool, error) {
	var exists int
	err := s.db.QueryRow(
		`SELECT 1 FROM channel_members WHERE channel = ? AND agent = ?`, name, agent,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return true, nil
}

func (s *Store) insertMembership(channel, agent string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO channel_members (channel, agent, joined_at) VALUES (?, ?, ?)`,
		channel, agent, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func scanChannelInfo(row scanner) (core.ChannelInfo, error) {
	var (
		info        core.ChannelInfo
		description sql.NullString
		createdAt   string
	)
	err := row.Scan(&info.Name, &description, &info.CreatedBy, &createdAt, &info.MemberCount, &info.MessageCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.ChannelInfo{}, err
		}
		return core.ChannelInfo{}, fmt.Errorf("scan channel: %w", err)
	}
	info.Description = description.String
	info.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return info, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
