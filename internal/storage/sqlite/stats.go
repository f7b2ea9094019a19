package sqlite

import (
	"fmt"

	"github.com/hasna/convo/internal/storage"
)

// Stats counts messages, distinct sessions, channels and unread rows for
// the status endpoint.
func (s *Store) Stats() (storage.Stats, error) {
	var st storage.Stats
	row := s.db.QueryRow(`SELECT
		(SELECT COUNT(*) FROM messages),
		(SELECT COUNT(DISTINCT session_id) FROM messages),
		(SELECT COUNT(*) FROM channels),
		(SELECT COUNT(*) FROM messages WHERE read_at IS NULL)`)
	if err := row.Scan(&st.TotalMessages, &st.TotalSessions, &st.TotalChannels, &st.UnreadMessages); err != nil {
		return storage.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}
