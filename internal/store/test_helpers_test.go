package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rahulclufox/EpubViewerKit/internal/bookmark"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBookmark builds a valid bookmark at a fixed base time plus
// minutes.
func createTestBookmark(id, bookID string, page, minutes int) bookmark.Bookmark {
	base := time.Date(2025, 12, 28, 9, 0, 0, 0, time.UTC)
	return bookmark.Bookmark{
		ID:          id,
		BookID:      bookID,
		PageNumber:  page,
		PageOffsetX: 0,
		PageOffsetY: 0,
		Date:        base.Add(time.Duration(minutes) * time.Minute),
	}
}

// installPoisonTrigger makes any insert for book "poison" abort, which
// lets tests force a transaction failure mid-batch.
func installPoisonTrigger(t *testing.T, s *Store) {
	t.Helper()
	_, err := s.db.Exec(`
		CREATE TRIGGER poison_insert BEFORE INSERT ON bookmarks
		WHEN NEW.book_id = 'poison'
		BEGIN SELECT RAISE(ABORT, 'poisoned row'); END
	`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}
}

func ids(bs []bookmark.Bookmark) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.ID
	}
	return out
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("table info: %v", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan column: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_index_list(?)", table)
	if err != nil {
		t.Fatalf("index list: %v", err)
	}
	defer rows.Close()

	var idx []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan index: %v", err)
		}
		idx = append(idx, name)
	}
	return idx
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
