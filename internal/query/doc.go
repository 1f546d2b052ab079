// Package query provides the abstract query representation for bookmark
// lookups.
//
// The store supports a fixed, small set of access patterns. Each is built
// here as a Select value and compiled to SQL by the querysql package:
//
//	[façade] → [query.Select] → [querysql] → SQLite
//
// Access patterns:
//   - ByID: bookmark_id equality, at most one row
//   - ByPosition: equality on all four position fields, natural order
//   - ByBook: book_id (and optional page_number), newest first
//   - All: no filter, natural order
//
// SEALED INTERFACES:
//
// Predicate and Value are sealed with marker methods so backends can use
// exhaustive type switches.
//
// ORDERING:
//
// Natural order is insertion order (the hidden seq column). Every ordering
// ends with seq ASC, so ties are broken identically on every call against
// the same store state.
package query
