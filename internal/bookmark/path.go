package bookmark

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// BookIDFromPath derives a book id from the book's file path: the base
// name without its final extension. "/books/kapalam.epub" → "kapalam".
// Returns "" for an empty path.
func BookIDFromPath(path string) string {
	if path == "" {
		return ""
	}
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return norm.NFC.String(base)
}
