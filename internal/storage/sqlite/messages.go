package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hasna/convo/internal/core"
	"github.com/hasna/convo/internal/storage"
)

// timeLayout is a fixed-width RFC3339 form (nine fractional digits, always
// present) so that stored timestamps compare lexicographically in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// deriveSessionID builds the deterministic-prefix session id for a direct
// conversation: the sorted participant pair plus a short random suffix so
// each conversation start gets a distinct id.
func deriveSessionID(from, to string) string {
	pair := []string{from, to}
	sort.Strings(pair)
	return strings.Join(pair, "-") + "-" + uuid.NewString()[:8]
}

// Append validates opts, assigns id and created_at, and inserts one row.
// Channel messages always land in the channel's synthetic session with the
// channel name as recipient, regardless of what the caller supplied.
func (s *Store) Append(opts storage.AppendOptions) (core.Message, error) {
	from := strings.TrimSpace(opts.From)
	to := strings.TrimSpace(opts.To)
	content := strings.TrimSpace(opts.Content)
	channel := strings.TrimSpace(opts.Channel)
	if from == "" || content == "" {
		return core.Message{}, fmt.Errorf("%w: from and content required", storage.ErrInvalidArgument)
	}
	if to == "" && channel == "" {
		return core.Message{}, fmt.Errorf("%w: to or channel required", storage.ErrInvalidArgument)
	}

	priority := opts.Priority
	if priority == "" {
		priority = core.PriorityNormal
	}
	if !priority.Valid() {
		return core.Message{}, fmt.Errorf("%w: unknown priority %q", storage.ErrInvalidArgument, priority)
	}

	sessionID := strings.TrimSpace(opts.SessionID)
	if channel != "" {
		to = channel
		sessionID = core.ChannelSessionID(channel)
	} else if sessionID == "" {
		sessionID = deriveSessionID(from, to)
	}

	var metadata sql.NullString
	if opts.Metadata != nil {
		raw, err := json.Marshal(opts.Metadata)
		if err != nil {
			return core.Message{}, fmt.Errorf("%w: metadata: %v", storage.ErrInvalidArgument, err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	createdAt := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO messages (session_id, from_agent, to_agent, channel, content, priority, working_dir, repository, branch, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, from, to, nullable(channel), content, string(priority),
		nullable(opts.WorkingDir), nullable(opts.Repository), nullable(opts.Branch),
		metadata, createdAt.Format(timeLayout),
	)
	if err != nil {
		return core.Message{}, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Message{}, fmt.Errorf("message id: %w", err)
	}

	return core.Message{
		ID:         id,
		SessionID:  sessionID,
		From:       from,
		To:         to,
		Channel:    channel,
		Content:    content,
		Priority:   priority,
		WorkingDir: opts.WorkingDir,
		Repository: opts.Repository,
		Branch:     opts.Branch,
		Metadata:   opts.Metadata,
		CreatedAt:  createdAt,
	}, nil
}

const messageColumns = `id, session_id, from_agent, to_agent, channel, content, priority, working_dir, repository, branch, metadata, created_at, read_at`

// Query returns messages matching every set predicate in filter, ordered
// by id (ascending unless filter.Descending).
func (s *Store) Query(filter storage.MessageFilter) ([]core.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE 1=1`
	var args []any
	if filter.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	if filter.From != "" {
		query += " AND from_agent = ?"
		args = append(args, filter.From)
	}
	if filter.To != "" {
		query += " AND to_agent = ?"
		args = append(args, filter.To)
	}
	if filter.Channel != "" {
		query += " AND channel = ?"
		args = append(args, filter.Channel)
	}
	if !filter.Since.IsZero() {
		query += " AND created_at > ?"
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	if filter.SinceID > 0 {
		query += " AND id > ?"
		args = append(args, filter.SinceID)
	}
	if filter.UnreadOnly {
		query += " AND read_at IS NULL"
	}
	if filter.Descending {
		query += " ORDER BY id DESC"
	} else {
		query += " ORDER BY id ASC"
	}
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []core.Message
	for rows.Next() {
		msg, err := s.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// Get returns the message with the given id, or ErrNotFound.
func (s *Store) Get(id int64) (core.Message, error) {
	row := s.db.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	msg, err := s.scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Message{}, fmt.Errorf("message %d: %w", id, storage.ErrNotFound)
	}
	return msg, err
}

// MarkRead marks each listed message read, but only where reader is the
// recipient and the message is still unread. Returns the number of rows
// actually changed; an empty id list is a no-op.
func (s *Store) MarkRead(ids []int64, reader string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	args := make([]any, 0, len(ids)+2)
	args = append(args, time.Now().UTC().Format(timeLayout))
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, reader)
	res, err := s.db.Exec(
		`UPDATE messages SET read_at = ? WHERE id IN (`+placeholders+`) AND to_agent = ? AND read_at IS NULL`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return rowsChanged(res)
}

// MarkSessionRead marks all of reader's unread messages in a session read.
func (s *Store) MarkSessionRead(sessionID, reader string) (int, error) {
	res, err := s.db.Exec(
		`UPDATE messages SET read_at = ? WHERE session_id = ? AND to_agent = ? AND read_at IS NULL`,
		time.Now().UTC().Format(timeLayout), sessionID, reader,
	)
	if err != nil {
		return 0, fmt.Errorf("mark session read: %w", err)
	}
	return rowsChanged(res)
}

// MarkChannelRead marks everyone else's unread channel messages read for
// reader. The reader's own messages are excluded; a sender never needs
// their own message marked.
func (s *Store) MarkChannelRead(channel, reader string) (int, error) {
	res, err := s.db.Exec(
		`UPDATE messages SET read_at = ? WHERE channel = ? AND from_agent != ? AND read_at IS NULL`,
		time.Now().UTC().Format(timeLayout), channel, reader,
	)
	if err != nil {
		return 0, fmt.Errorf("mark channel read: %w", err)
	}
	return rowsChanged(res)
}

func rowsChanged(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanMessage(row scanner) (core.Message, error) {
	var (
		m                                                 core.Message
		channel, workingDir, repository, branch, metadata sql.NullString
		priority, createdAt                               string
		readAt                                            sql.NullString
	)
	err := row.Scan(&m.ID, &m.SessionID, &m.From, &m.To, &channel, &m.Content,
		&priority, &workingDir, &repository, &branch, &metadata, &createdAt, &readAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Message{}, err
		}
		return core.Message{}, fmt.Errorf("scan message: %w", err)
	}
	m.Channel = channel.String
	m.Priority = core.Priority(priority)
	m.WorkingDir = workingDir.String
	m.Repository = repository.String
	m.Branch = branch.String
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &m.Metadata); err != nil {
			// The message is still usable; surface the corrupt blob
			// instead of failing the whole query.
			s.log.Warn().
				Int64("id", m.ID).
				Err(err).
				Msg("dropping unparseable message metadata")
		}
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if readAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, readAt.String)
		m.ReadAt = &t
	}
	return m, nil
}
