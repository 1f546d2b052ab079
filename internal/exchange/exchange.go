// Package exchange moves bookmarks in and out of the store as files.
//
// Export writes canonical JSON lines, one bookmark per line in natural
// order, so two exports of the same store are byte-identical. Import reads
// either that format or a YAML document and stores every record in a
// single transaction.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rahulclufox/EpubViewerKit/internal/bookmark"
	"github.com/rahulclufox/EpubViewerKit/internal/query"
)

// Format identifies a file encoding.
type Format string

const (
	FormatJSONLines Format = "jsonl"
	FormatYAML      Format = "yaml"
)

// ErrUnknownFormat is returned when no format can be derived.
var ErrUnknownFormat = errors.New("unknown exchange format")

// Source lists bookmarks for export.
type Source interface {
	Query(ctx context.Context, q query.Select) ([]bookmark.Bookmark, error)
}

// Sink stores imported bookmarks atomically.
type Sink interface {
	WriteBatch(ctx context.Context, bs []bookmark.Bookmark) error
}

// Record is the file representation of one bookmark. ID and Date may be
// omitted on import; they are then generated.
type Record struct {
	ID          string    `json:"bookmark_id" yaml:"bookmark_id"`
	BookID      string    `json:"book_id" yaml:"book_id"`
	PageNumber  int       `json:"page_number" yaml:"page_number"`
	PageOffsetX int       `json:"page_offset_x" yaml:"page_offset_x"`
	PageOffsetY int       `json:"page_offset_y" yaml:"page_offset_y"`
	Date        time.Time `json:"date" yaml:"date"`
	Name        *string   `json:"bookmark_name,omitempty" yaml:"bookmark_name,omitempty"`
}

// Document is the top level of a YAML import file.
type Document struct {
	Bookmarks []Record `yaml:"bookmarks"`
}

// Options supplies ids and dates for records that lack them.
type Options struct {
	IDs   bookmark.IDGenerator
	Clock bookmark.Clock
}

func (o Options) withDefaults() Options {
	if o.IDs == nil {
		o.IDs = bookmark.UUIDGenerator{}
	}
	if o.Clock == nil {
		o.Clock = bookmark.SystemClock{}
	}
	return o
}

// DetectFormat derives the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson", ".json":
		return FormatJSONLines, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// ParseFormat validates a format name given by a user.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case FormatJSONLines:
		return FormatJSONLines, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Export writes every bookmark in src to w as canonical JSON lines and
// returns how many were written.
func Export(ctx context.Context, w io.Writer, src Source) (int, error) {
	all, err := src.Query(ctx, query.All())
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}

	for i, b := range all {
		line, err := bookmark.MarshalCanonical(b)
		if err != nil {
			return i, fmt.Errorf("export %s: %w", b.ID, err)
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return i, fmt.Errorf("export: %w", err)
		}
	}
	return len(all), nil
}

// Decode reads records in format f.
func Decode(r io.Reader, f Format) ([]Record, error) {
	switch f {
	case FormatJSONLines:
		return decodeJSONLines(r)
	case FormatYAML:
		return decodeYAML(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

func decodeJSONLines(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	records := []Record{}
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
}

func decodeYAML(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read yaml: %w", err)
	}

	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc.Bookmarks == nil {
		doc.Bookmarks = []Record{}
	}
	return doc.Bookmarks, nil
}

// Bookmark converts rec to a validated bookmark, filling a missing ID or
// date from opts.
func (rec Record) Bookmark(opts Options) (bookmark.Bookmark, error) {
	opts = opts.withDefaults()

	pos := bookmark.Position{
		BookID:      rec.BookID,
		PageNumber:  rec.PageNumber,
		PageOffsetX: rec.PageOffsetX,
		PageOffsetY: rec.PageOffsetY,
	}
	if err := pos.Validate(); err != nil {
		return bookmark.Bookmark{}, err
	}

	ids, clock := opts.IDs, opts.Clock
	if rec.ID != "" {
		ids = bookmark.NewFixedGenerator(rec.ID)
	}
	if !rec.Date.IsZero() {
		clock = staticClock(rec.Date)
	}

	b := bookmark.New(pos, rec.Name, ids, clock)
	return b, b.Validate()
}

// staticClock reports a recorded creation time.
type staticClock time.Time

func (c staticClock) Now() time.Time { return time.Time(c) }

// Import decodes r and writes every record to sink in one transaction. A
// bad record aborts the import before anything is written.
func Import(ctx context.Context, sink Sink, r io.Reader, f Format, opts Options) (int, error) {
	records, err := Decode(r, f)
	if err != nil {
		return 0, fmt.Errorf("import: %w", err)
	}

	bs := make([]bookmark.Bookmark, 0, len(records))
	for i, rec := range records {
		b, err := rec.Bookmark(opts)
		if err != nil {
			return 0, fmt.Errorf("import record %d: %w", i, err)
		}
		bs = append(bs, b)
	}

	if err := sink.WriteBatch(ctx, bs); err != nil {
		return 0, fmt.Errorf("import: %w", err)
	}
	return len(bs), nil
}
