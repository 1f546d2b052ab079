package query

import "github.com/rahulclufox/EpubViewerKit/internal/bookmark"

// Field names a filterable bookmark column.
type Field string

const (
	FieldID          Field = "bookmark_id"
	FieldBookID      Field = "book_id"
	FieldPageNumber  Field = "page_number"
	FieldPageOffsetX Field = "page_offset_x"
	FieldPageOffsetY Field = "page_offset_y"
)

// KnownFields lists every field a predicate may reference.
var KnownFields = map[Field]bool{
	FieldID:          true,
	FieldBookID:      true,
	FieldPageNumber:  true,
	FieldPageOffsetX: true,
	FieldPageOffsetY: true,
}

// Value is a literal compared against a field.
//
// This is a sealed interface: only Text and Int implement it.
type Value interface {
	valueNode()
}

// Text is a string literal.
type Text string

func (Text) valueNode() {}

// Int is an integer literal.
type Int int64

func (Int) valueNode() {}

// Predicate is a filter condition.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = literal
//   - And: all predicates must be true
type Predicate interface {
	predicateNode()
}

// Equals represents a field-equals-literal predicate.
//
//	Equals{Field: FieldBookID, Value: Text("kapalam")}
//
// compiles to
//
//	book_id = ?
type Equals struct {
	Field Field
	Value Value
}

func (Equals) predicateNode() {}

// And represents a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Order selects the sort applied to results.
type Order int

const (
	// OrderNatural returns rows in insertion order.
	OrderNatural Order = iota

	// OrderDateDesc returns the most recent bookmark first. Rows with the
	// same date keep their relative insertion order.
	OrderDateDesc
)

// String returns the order's name.
func (o Order) String() string {
	switch o {
	case OrderNatural:
		return "natural"
	case OrderDateDesc:
		return "date_desc"
	default:
		return "unknown"
	}
}

// Select is a bookmark query: an optional filter, an ordering and an
// optional row limit (0 = unlimited).
type Select struct {
	Filter Predicate
	Order  Order
	Limit  int
}

// ByID matches the bookmark with the given id.
func ByID(id string) Select {
	return Select{
		Filter: Equals{Field: FieldID, Value: Text(id)},
		Order:  OrderNatural,
		Limit:  1,
	}
}

// ByPosition matches every bookmark at exactly pos. Duplicates are
// possible; callers that want one record take the first.
func ByPosition(pos bookmark.Position) Select {
	return Select{
		Filter: And{Predicates: []Predicate{
			Equals{Field: FieldBookID, Value: Text(pos.BookID)},
			Equals{Field: FieldPageNumber, Value: Int(pos.PageNumber)},
			Equals{Field: FieldPageOffsetX, Value: Int(pos.PageOffsetX)},
			Equals{Field: FieldPageOffsetY, Value: Int(pos.PageOffsetY)},
		}},
		Order: OrderNatural,
	}
}

// ByBook matches the bookmarks of one book, newest first. A non-nil page
// further restricts the match to that page.
func ByBook(bookID string, page *int) Select {
	filter := Predicate(Equals{Field: FieldBookID, Value: Text(bookID)})
	if page != nil {
		filter = And{Predicates: []Predicate{
			filter,
			Equals{Field: FieldPageNumber, Value: Int(*page)},
		}}
	}
	return Select{
		Filter: filter,
		Order:  OrderDateDesc,
	}
}

// All matches every bookmark in natural order.
func All() Select {
	return Select{Order: OrderNatural}
}
