package bookmark

import (
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrInvalidPosition is returned when a Position fails field validation.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrInvalidBookmark is returned when a Bookmark fails field validation.
	ErrInvalidBookmark = errors.New("invalid bookmark")
)

// Dates are persisted as unix nanoseconds, which bounds them to this range.
var (
	MinDate = time.Unix(0, math.MinInt64).UTC()
	MaxDate = time.Unix(0, math.MaxInt64).UTC()
)

// Position is the composite match key reported by the rendering engine for
// the user's current reading spot.
type Position struct {
	BookID      string `json:"book_id" yaml:"book_id"`
	PageNumber  int    `json:"page_number" yaml:"page_number"`
	PageOffsetX int    `json:"page_offset_x" yaml:"page_offset_x"`
	PageOffsetY int    `json:"page_offset_y" yaml:"page_offset_y"`
}

// Validate checks the field rules for a position. Offsets are opaque
// integers in the reader's coordinate system and are not range checked.
func (p Position) Validate() error {
	if p.BookID == "" {
		return fmt.Errorf("%w: book id is required", ErrInvalidPosition)
	}
	if p.PageNumber < 0 {
		return fmt.Errorf("%w: page number %d is negative", ErrInvalidPosition, p.PageNumber)
	}
	return nil
}

// Normalize returns a copy of p with BookID NFC normalized.
func (p Position) Normalize() Position {
	p.BookID = norm.NFC.String(p.BookID)
	return p
}

// String renders the position as "book@page(x,y)".
func (p Position) String() string {
	return fmt.Sprintf("%s@%d(%d,%d)", p.BookID, p.PageNumber, p.PageOffsetX, p.PageOffsetY)
}

// Bookmark is the sole persisted entity.
//
// Values are plain copies; a Bookmark returned from the store holds no
// reference back to it.
type Bookmark struct {
	ID          string    `json:"bookmark_id"`
	BookID      string    `json:"book_id"`
	PageNumber  int       `json:"page_number"`
	PageOffsetX int       `json:"page_offset_x"`
	PageOffsetY int       `json:"page_offset_y"`
	Date        time.Time `json:"date"`
	Name        *string   `json:"bookmark_name,omitempty"`
}

// New constructs a bookmark at pos. It assigns a fresh ID from ids and a
// creation time from clock. Nothing is persisted.
func New(pos Position, name *string, ids IDGenerator, clock Clock) Bookmark {
	pos = pos.Normalize()
	return Bookmark{
		ID:          ids.Generate(),
		BookID:      pos.BookID,
		PageNumber:  pos.PageNumber,
		PageOffsetX: pos.PageOffsetX,
		PageOffsetY: pos.PageOffsetY,
		Date:        Timestamp(clock.Now()),
		Name:        normalizeName(name),
	}
}

// Position returns the match key of b.
func (b Bookmark) Position() Position {
	return Position{
		BookID:      b.BookID,
		PageNumber:  b.PageNumber,
		PageOffsetX: b.PageOffsetX,
		PageOffsetY: b.PageOffsetY,
	}
}

// Validate checks that b can be persisted.
func (b Bookmark) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("%w: bookmark id is required", ErrInvalidBookmark)
	}
	if b.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidBookmark)
	}
	if b.Date.Before(MinDate) || b.Date.After(MaxDate) {
		return fmt.Errorf("%w: date %s outside %d..%d", ErrInvalidBookmark,
			b.Date.UTC().Format(time.RFC3339), MinDate.Year(), MaxDate.Year())
	}
	if err := b.Position().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBookmark, err)
	}
	return nil
}

// Normalize returns a copy of b with BookID and Name NFC normalized, the
// form the store persists and lookups compare against.
func (b Bookmark) Normalize() Bookmark {
	b.BookID = norm.NFC.String(b.BookID)
	b.Name = normalizeName(b.Name)
	return b
}

// HasName reports whether a name was supplied, even if it is empty.
func (b Bookmark) HasName() bool {
	return b.Name != nil
}

// DisplayName returns the name, or "" when absent.
func (b Bookmark) DisplayName() string {
	if b.Name == nil {
		return ""
	}
	return *b.Name
}

// Name is a helper for building optional names inline.
func Name(s string) *string {
	return &s
}

// Timestamp converts t to the precision and location the store persists:
// UTC with the monotonic clock reading stripped, so a value survives a
// write/read cycle unchanged.
func Timestamp(t time.Time) time.Time {
	return t.Round(0).UTC()
}

func normalizeName(name *string) *string {
	if name == nil {
		return nil
	}
	n := norm.NFC.String(*name)
	return &n
}
