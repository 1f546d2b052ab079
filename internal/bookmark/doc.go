// Package bookmark defines the persisted Bookmark record and the Position
// match key used by the reader to ask "is there already a bookmark here".
//
// This package contains the record schema only. All other internal packages
// import bookmark; bookmark imports nothing internal.
//
// Key constraints:
//   - ID is the primary identity, generated once and never reused
//   - (BookID, PageNumber, PageOffsetX, PageOffsetY) is a match key, NOT unique
//   - Date is set once at construction and never mutated
//   - Name is optional; nil (absent) and "" (empty) are distinct values
//   - BookID and Name are NFC normalized at construction
package bookmark
