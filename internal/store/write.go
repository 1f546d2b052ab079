package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rahulclufox/EpubViewerKit/internal/bookmark"
)

const upsertSQL = `
	INSERT INTO bookmarks
	(seq, bookmark_id, book_id, page_number, page_offset_x, page_offset_y, created_at, bookmark_name)
	VALUES ((SELECT COALESCE(MAX(seq), 0) + 1 FROM bookmarks), ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(bookmark_id) DO UPDATE SET
		book_id       = excluded.book_id,
		page_number   = excluded.page_number,
		page_offset_x = excluded.page_offset_x,
		page_offset_y = excluded.page_offset_y,
		created_at    = excluded.created_at,
		bookmark_name = excluded.bookmark_name
`

// Write upserts one bookmark inside a transaction.
//
// A bookmark whose ID already exists overwrites that record's other fields
// and keeps its place in natural order. Validation errors are returned
// before any transaction starts; storage failures are *StorageError with
// KindTransactionFailed and leave the store unchanged.
func (s *Store) Write(ctx context.Context, b bookmark.Bookmark) error {
	return s.WriteBatch(ctx, []bookmark.Bookmark{b})
}

// WriteBatch upserts bookmarks in a single transaction: either all of them
// are stored or none are. BookID and Name are stored NFC normalized, the
// form every lookup compares against.
func (s *Store) WriteBatch(ctx context.Context, bs []bookmark.Bookmark) error {
	normalized := make([]bookmark.Bookmark, len(bs))
	for i, b := range bs {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("write bookmark[%d]: %w", i, err)
		}
		normalized[i] = b.Normalize()
	}
	if len(normalized) == 0 {
		return nil
	}
	bs = normalized

	return s.inTx(ctx, "write", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertSQL)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, b := range bs {
			if _, err := stmt.ExecContext(ctx,
				b.ID,
				b.BookID,
				b.PageNumber,
				b.PageOffsetX,
				b.PageOffsetY,
				b.Date.UnixNano(),
				nullableName(b.Name),
			); err != nil {
				return fmt.Errorf("upsert %s: %w", b.ID, err)
			}
		}
		return nil
	})
}

// Delete removes the bookmark with the given id inside a transaction.
// Deleting an id that does not exist is a successful no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.DeleteIDs(ctx, []string{id})
	return err
}

// DeleteIDs removes every listed bookmark in one transaction and returns
// how many rows were actually removed. Unknown ids are skipped.
func (s *Store) DeleteIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var removed int64
	err := s.inTx(ctx, "delete", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `DELETE FROM bookmarks WHERE bookmark_id = ?`)
		if err != nil {
			return fmt.Errorf("prepare delete: %w", err)
		}
		defer stmt.Close()

		for _, id := range ids {
			res, err := stmt.ExecContext(ctx, id)
			if err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			removed += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(removed), nil
}

// inTx runs fn between BEGIN and COMMIT while holding the write lock. Any
// error from fn or from COMMIT rolls the transaction back.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return txFailed(op, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return txFailed(op, err)
	}

	if err := tx.Commit(); err != nil {
		return txFailed(op, fmt.Errorf("commit: %w", err))
	}
	return nil
}

func nullableName(name *string) sql.NullString {
	if name == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *name, Valid: true}
}
