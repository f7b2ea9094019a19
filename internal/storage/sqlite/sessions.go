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

// Sessions are a pure function of the message log: there is no sessions
// table, only a GROUP BY over messages. Unread counts are relative to the
// queried agent and reported as zero when no agent is given.

// ListSessions aggregates every session, most recently active first. When
// agent is non-empty, only sessions the agent participates in are
// returned and unread counts are scoped to messages addressed to it.
func (s *Store) ListSessions(agent string) ([]core.Session, error) {
	var (
		query string
		args  []any
	)
	if agent != "" {
		query = `SELECT session_id,
			GROUP_CONCAT(DISTINCT from_agent) || ',' || GROUP_CONCAT(DISTINCT to_agent) AS all_agents,
			MAX(created_at) AS last_message_at,
			COUNT(*) AS message_count,
			SUM(CASE WHEN read_at IS NULL AND to_agent = ? THEN 1 ELSE 0 END) AS unread_count
		FROM messages
		WHERE from_agent = ? OR to_agent = ?
		GROUP BY session_id
		ORDER BY last_message_at DESC`
		args = []any{agent, agent, agent}
	} else {
		query = `SELECT session_id,
			GROUP_CONCAT(DISTINCT from_agent) || ',' || GROUP_CONCAT(DISTINCT to_agent) AS all_agents,
			MAX(created_at) AS last_message_at,
			COUNT(*) AS message_count,
			0 AS unread_count
		FROM messages
		GROUP BY session_id
		ORDER BY last_message_at DESC`
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []core.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// GetSession aggregates a single session, or returns ErrNotFound if no
// message carries the id.
func (s *Store) GetSession(sessionID, agent string) (core.Session, error) {
	var (
		query string
		args  []any
	)
	if agent != "" {
		query = `SELECT session_id,
			GROUP_CONCAT(DISTINCT from_agent) || ',' || GROUP_CONCAT(DISTINCT to_agent) AS all_agents,
			MAX(created_at) AS last_message_at,
			COUNT(*) AS message_count,
			SUM(CASE WHEN read_at IS NULL AND to_agent = ? THEN 1 ELSE 0 END) AS unread_count
		FROM messages
		WHERE session_id = ?
		GROUP BY session_id`
		args = []any{agent, sessionID}
	} else {
		query = `SELECT session_id,
			GROUP_CONCAT(DISTINCT from_agent) || ',' || GROUP_CONCAT(DISTINCT to_agent) AS all_agents,
			MAX(created_at) AS last_message_at,
			COUNT(*) AS message_count,
			0 AS unread_count
		FROM messages
		WHERE session_id = ?
		GROUP BY session_id`
		args = []any{sessionID}
	}

	session, err := scanSession(s.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, fmt.Errorf("session %q: %w", sessionID, storage.ErrNotFound)
	}
	return session, err
}

func scanSession(row scanner) (core.Session, error) {
	var (
		s             core.Session
		allAgents     string
		lastMessageAt string
	)
	err := row.Scan(&s.SessionID, &allAgents, &lastMessageAt, &s.MessageCount, &s.UnreadCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Session{}, err
		}
		return core.Session{}, fmt.Errorf("scan session: %w", err)
	}
	s.Participants = dedupe(strings.Split(allAgents, ","))
	s.LastMessageAt, _ = time.Parse(time.RFC3339Nano, lastMessageAt)
	return s, nil
}

// dedupe removes duplicates while keeping first-seen order.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
