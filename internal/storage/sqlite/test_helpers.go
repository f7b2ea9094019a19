package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

// newTestStore opens a file-backed store in a temp dir. File-backed rather
// than :memory: so WAL and busy-timeout behave as in production.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "convo.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}
