package service

import (
	"context"

	"github.com/rahulclufox/EpubViewerKit/internal/bookmark"
	"github.com/rahulclufox/EpubViewerKit/internal/logger"
	"github.com/rahulclufox/EpubViewerKit/internal/query"
)

// Store is the subset of *store.Store the façade depends on.
type Store interface {
	Write(ctx context.Context, b bookmark.Bookmark) error
	Delete(ctx context.Context, id string) error
	DeleteIDs(ctx context.Context, ids []string) (int, error)
	Query(ctx context.Context, q query.Select) ([]bookmark.Bookmark, error)
}

// ErrorHandler receives failures that an operation reports instead of
// returning. op names the façade operation, e.g. "remove".
type ErrorHandler func(op string, b bookmark.Bookmark, err error)

// Service implements the public bookmark operations.
type Service struct {
	store   Store
	log     logger.Logger
	ids     bookmark.IDGenerator
	clock   bookmark.Clock
	onError ErrorHandler
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithIDGenerator sets the generator used by NewBookmark.
func WithIDGenerator(g bookmark.IDGenerator) Option {
	return func(s *Service) { s.ids = g }
}

// WithClock sets the clock used by NewBookmark.
func WithClock(c bookmark.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithErrorHandler sets a callback for failures that are reported rather
// than returned.
func WithErrorHandler(h ErrorHandler) Option {
	return func(s *Service) { s.onError = h }
}

// New creates a façade over st. The store must already be open; the
// service does not close it.
func New(st Store, opts ...Option) *Service {
	s := &Service{
		store: st,
		log:   logger.NewNop(),
		ids:   bookmark.UUIDGenerator{},
		clock: bookmark.SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome is the result of Persist.
type Outcome struct {
	// Bookmark is the input bookmark in its stored form: BookID and Name
	// NFC normalized, every other field unchanged.
	Bookmark bookmark.Bookmark

	// Err is nil on success.
	Err error
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Persist writes b. A record with the same ID is overwritten.
func (s *Service) Persist(ctx context.Context, b bookmark.Bookmark) Outcome {
	b = b.Normalize()
	if err := s.store.Write(ctx, b); err != nil {
		s.log.Debug("persist failed", logger.String("bookmark_id", b.ID), logger.Error(err))
		return Outcome{Bookmark: b, Err: err}
	}
	return Outcome{Bookmark: b}
}

// Remove deletes b. Removing a bookmark that is not stored is a no-op.
// Failures are reported, not returned.
func (s *Service) Remove(ctx context.Context, b bookmark.Bookmark) {
	if err := s.store.Delete(ctx, b.ID); err != nil {
		s.report("remove", b, err)
	}
}

// RemoveByID looks up id and removes it when found.
func (s *Service) RemoveByID(ctx context.Context, id string) {
	b, ok, err := s.GetByID(ctx, id)
	if err != nil {
		s.report("remove_by_id", bookmark.Bookmark{ID: id}, err)
		return
	}
	if !ok {
		return
	}
	s.Remove(ctx, b)
}

// GetByID returns the bookmark with id, if stored.
func (s *Service) GetByID(ctx context.Context, id string) (bookmark.Bookmark, bool, error) {
	found, err := s.store.Query(ctx, query.ByID(id))
	if err != nil {
		return bookmark.Bookmark{}, false, err
	}
	if len(found) == 0 {
		return bookmark.Bookmark{}, false, nil
	}
	return found[0], true, nil
}

// GetByMatchingPosition returns the first bookmark, in natural order, that
// sits exactly at pos.
func (s *Service) GetByMatchingPosition(ctx context.Context, pos bookmark.Position) (bookmark.Bookmark, bool, error) {
	pos = pos.Normalize()
	found, err := s.store.Query(ctx, query.ByPosition(pos))
	if err != nil {
		return bookmark.Bookmark{}, false, err
	}
	if len(found) == 0 {
		return bookmark.Bookmark{}, false, nil
	}
	if len(found) > 1 {
		s.log.Debug("duplicate position",
			logger.String("position", pos.String()),
			logger.Int("matches", len(found)),
			logger.Strings("bookmark_ids", idsOf(found)),
		)
	}
	return found[0], true, nil
}

// ListForBook returns the bookmarks of bookID, newest first. A non-nil
// page restricts the listing to that page.
func (s *Service) ListForBook(ctx context.Context, bookID string, page *int) ([]bookmark.Bookmark, error) {
	bookID = bookmark.Position{BookID: bookID}.Normalize().BookID
	return s.store.Query(ctx, query.ByBook(bookID, page))
}

// ListAll returns every bookmark in natural order.
func (s *Service) ListAll(ctx context.Context) ([]bookmark.Bookmark, error) {
	return s.store.Query(ctx, query.All())
}

// NewBookmark constructs an unsaved bookmark at pos with a fresh ID and
// the current time. A nil name leaves the bookmark unnamed.
func (s *Service) NewBookmark(pos bookmark.Position, name *string) (bookmark.Bookmark, error) {
	if err := pos.Validate(); err != nil {
		return bookmark.Bookmark{}, err
	}
	return bookmark.New(pos, name, s.ids, s.clock), nil
}

func (s *Service) report(op string, b bookmark.Bookmark, err error) {
	s.log.Error(op+" failed", logger.String("bookmark_id", b.ID), logger.Error(err))
	if s.onError != nil {
		s.onError(op, b, err)
	}
}

func idsOf(bs []bookmark.Bookmark) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.ID
	}
	return out
}
