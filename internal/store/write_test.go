package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rahulclufox/EpubViewerKit/internal/bookmark"
	"github.com/rahulclufox/EpubViewerKit/internal/query"
)

func TestWrite_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	b := createTestBookmark("bm-1", "kapalam", 5, 0)
	b.PageOffsetX = 10
	b.PageOffsetY = -20
	b.Name = bookmark.Name("chapter mark")

	if err := s.Write(ctx, b); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	got, err := s.Query(ctx, query.ByID("bm-1"))
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].ID != b.ID || got[0].BookID != b.BookID || got[0].PageNumber != b.PageNumber ||
		got[0].PageOffsetX != b.PageOffsetX || got[0].PageOffsetY != b.PageOffsetY {
		t.Errorf("got %+v, want %+v", got[0], b)
	}
	if !got[0].Date.Equal(b.Date) {
		t.Errorf("date = %v, want %v", got[0].Date, b.Date)
	}
	if got[0].DisplayName() != "chapter mark" {
		t.Errorf("name = %q, want %q", got[0].DisplayName(), "chapter mark")
	}
}

func TestWrite_NameAbsentVersusEmpty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	absent := createTestBookmark("absent", "kapalam", 1, 0)
	empty := createTestBookmark("empty", "kapalam", 1, 1)
	empty.Name = bookmark.Name("")

	if err := s.WriteBatch(ctx, []bookmark.Bookmark{absent, empty}); err != nil {
		t.Fatalf("WriteBatch() failed: %v", err)
	}

	got, err := s.Query(ctx, query.All())
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if got[0].HasName() {
		t.Error("absent name came back present")
	}
	if !got[1].HasName() || got[1].DisplayName() != "" {
		t.Errorf("empty name came back as %v", got[1].Name)
	}
}

func TestWrite_UpsertOverwritesAndKeepsOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestBookmark("bm-1", "kapalam", 1, 0)
	second := createTestBookmark("bm-2", "kapalam", 2, 1)
	if err := s.WriteBatch(ctx, []bookmark.Bookmark{first, second}); err != nil {
		t.Fatalf("WriteBatch() failed: %v", err)
	}

	updated := first
	updated.PageNumber = 9
	updated.Name = bookmark.Name("renamed")
	if err := s.Write(ctx, updated); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	all, err := s.Query(ctx, query.All())
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if got := ids(all); len(got) != 2 || got[0] != "bm-1" || got[1] != "bm-2" {
		t.Fatalf("ids = %v, want [bm-1 bm-2]", got)
	}
	if all[0].PageNumber != 9 || all[0].DisplayName() != "renamed" {
		t.Errorf("upsert did not overwrite: %+v", all[0])
	}
}

func TestWrite_ValidationRejected(t *testing.T) {
	s := createTestStore(t)

	b := createTestBookmark("", "kapalam", 1, 0)
	err := s.Write(context.Background(), b)
	if !errors.Is(err, bookmark.ErrInvalidBookmark) {
		t.Fatalf("error = %v, want ErrInvalidBookmark", err)
	}
	if KindOf(err) != "" {
		t.Errorf("validation error should not be a storage error, got kind %q", KindOf(err))
	}
}

func TestWrite_DateOutsideStorableRange(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, date := range []time.Time{
		bookmark.MinDate.Add(-time.Nanosecond),
		bookmark.MaxDate.Add(time.Nanosecond),
	} {
		b := createTestBookmark("far", "kapalam", 1, 0)
		b.Date = date
		if err := s.Write(ctx, b); !errors.Is(err, bookmark.ErrInvalidBookmark) {
			t.Errorf("Write(date %s) error = %v, want ErrInvalidBookmark", date, err)
		}
	}

	for i, date := range []time.Time{bookmark.MinDate, bookmark.MaxDate} {
		b := createTestBookmark([]string{"first", "last"}[i], "kapalam", 1, 0)
		b.Date = date
		if err := s.Write(ctx, b); err != nil {
			t.Fatalf("Write(date %s) failed: %v", date, err)
		}
		got, err := s.Query(ctx, query.ByID(b.ID))
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(got) != 1 || !got[0].Date.Equal(date) {
			t.Errorf("stored date = %v, want %v", got, date)
		}
	}
}

func TestWrite_StoresNormalizedText(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	b := createTestBookmark("x1", "cafe\u0301", 1, 0)
	b.Name = bookmark.Name("cafe\u0301")
	if err := s.Write(ctx, b); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	got, err := s.Query(ctx, query.ByPosition(bookmark.Position{BookID: "caf\u00e9", PageNumber: 1}))
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Query() returned %d bookmarks, want 1", len(got))
	}
	if got[0].BookID != "caf\u00e9" || *got[0].Name != "caf\u00e9" {
		t.Errorf("stored text = %q / %q, want NFC", got[0].BookID, *got[0].Name)
	}
	if b.BookID != "cafe\u0301" {
		t.Error("Write() modified the caller's bookmark")
	}
}

func TestWriteBatch_RollbackOnFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	installPoisonTrigger(t, s)

	if err := s.Write(ctx, createTestBookmark("keep", "kapalam", 1, 0)); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	batch := []bookmark.Bookmark{
		createTestBookmark("a", "kapalam", 2, 1),
		createTestBookmark("b", "poison", 3, 2),
		createTestBookmark("c", "kapalam", 4, 3),
	}
	err := s.WriteBatch(ctx, batch)
	if !errors.Is(err, ErrTransactionFailed) {
		t.Fatalf("error = %v, want ErrTransactionFailed", err)
	}

	all, err := s.Query(ctx, query.All())
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if got := ids(all); len(got) != 1 || got[0] != "keep" {
		t.Errorf("ids after rollback = %v, want [keep]", got)
	}
}

func TestWriteBatch_Empty(t *testing.T) {
	s := createTestStore(t)
	if err := s.WriteBatch(context.Background(), nil); err != nil {
		t.Errorf("WriteBatch(nil) = %v, want nil", err)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteBatch(ctx, []bookmark.Bookmark{
		createTestBookmark("bm-1", "kapalam", 1, 0),
		createTestBookmark("bm-2", "kapalam", 2, 1),
	}); err != nil {
		t.Fatalf("WriteBatch() failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.Delete(ctx, "bm-1"); err != nil {
			t.Fatalf("Delete() call %d failed: %v", i+1, err)
		}
		all, err := s.Query(ctx, query.All())
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if got := ids(all); len(got) != 1 || got[0] != "bm-2" {
			t.Errorf("after delete %d ids = %v, want [bm-2]", i+1, got)
		}
	}
}

func TestDeleteIDs_CountsRemoved(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteBatch(ctx, []bookmark.Bookmark{
		createTestBookmark("bm-1", "kapalam", 1, 0),
		createTestBookmark("bm-2", "kapalam", 2, 1),
	}); err != nil {
		t.Fatalf("WriteBatch() failed: %v", err)
	}

	n, err := s.DeleteIDs(ctx, []string{"bm-1", "missing", "bm-2"})
	if err != nil {
		t.Fatalf("DeleteIDs() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("removed = %d, want 2", n)
	}
	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestWrite_AfterDeleteAppendsAtEnd(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteBatch(ctx, []bookmark.Bookmark{
		createTestBookmark("a", "kapalam", 1, 0),
		createTestBookmark("b", "kapalam", 1, 0),
	}); err != nil {
		t.Fatalf("WriteBatch() failed: %v", err)
	}
	if err := s.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := s.Write(ctx, createTestBookmark("c", "kapalam", 1, 0)); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := s.Write(ctx, createTestBookmark("b", "kapalam", 1, 0)); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	all, err := s.Query(ctx, query.All())
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if got := ids(all); len(got) != 3 || got[0] != "a" || got[1] != "c" || got[2] != "b" {
		t.Errorf("ids = %v, want [a c b]", got)
	}
}

func TestWrite_ConcurrentWritersSerialized(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	const writers = 8
	const perWriter = 10

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				id := string(rune('a'+w)) + "-" + string(rune('0'+i))
				if err := s.Write(ctx, createTestBookmark(id, "kapalam", i, w)); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Write() failed: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != writers*perWriter {
		t.Errorf("count = %d, want %d", n, writers*perWriter)
	}

	var distinctSeq int
	if err := s.db.QueryRow("SELECT COUNT(DISTINCT seq) FROM bookmarks").Scan(&distinctSeq); err != nil {
		t.Fatalf("count seq: %v", err)
	}
	if distinctSeq != n {
		t.Errorf("distinct seq = %d, want %d", distinctSeq, n)
	}
}

func TestWrite_ClosedStore(t *testing.T) {
	s := createTestStore(t)
	s.Close()

	err := s.Write(context.Background(), createTestBookmark("bm-1", "kapalam", 1, 0))
	if !errors.Is(err, ErrTransactionFailed) {
		t.Errorf("error = %v, want ErrTransactionFailed", err)
	}
}
