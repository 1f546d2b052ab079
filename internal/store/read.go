package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rahulclufox/EpubViewerKit/internal/bookmark"
	"github.com/rahulclufox/EpubViewerKit/internal/query"
)

// Query returns every bookmark matching q in q's order.
//
// Returns an empty slice (not nil) when nothing matches. Invalid queries
// are returned as-is (query.ErrInvalidQuery); read failures are
// *StorageError with KindQueryFailed.
func (s *Store) Query(ctx context.Context, q query.Select) ([]bookmark.Bookmark, error) {
	sqlText, params, err := s.compiler.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, queryFailed("query", err)
	}
	defer rows.Close()

	bookmarks := []bookmark.Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, queryFailed("query", err)
		}
		bookmarks = append(bookmarks, b)
	}

	if err := rows.Err(); err != nil {
		return nil, queryFailed("query", fmt.Errorf("iterate bookmarks: %w", err))
	}

	return bookmarks, nil
}

// Count returns the number of stored bookmarks.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookmarks`).Scan(&n); err != nil {
		return 0, queryFailed("count", err)
	}
	return n, nil
}

// scanBookmark scans a row in querysql.Columns order.
func scanBookmark(rows *sql.Rows) (bookmark.Bookmark, error) {
	var b bookmark.Bookmark
	var createdAt int64
	var name sql.NullString

	if err := rows.Scan(
		&b.ID, &b.BookID, &b.PageNumber, &b.PageOffsetX, &b.PageOffsetY,
		&createdAt, &name,
	); err != nil {
		return bookmark.Bookmark{}, fmt.Errorf("scan bookmark: %w", err)
	}

	b.Date = time.Unix(0, createdAt).UTC()
	if name.Valid {
		n := name.String
		b.Name = &n
	}
	return b, nil
}
