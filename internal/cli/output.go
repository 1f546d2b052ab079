package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rahulclufox/EpubViewerKit/internal/bookmark"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // not found, storage error, failed scenarios
	ExitCommandError = 2 // bad arguments, unreadable config, database won't open
)

// Error codes carried in JSON error responses.
const (
	CodeNotFound     = "E_NOT_FOUND"
	CodeInvalidInput = "E_INVALID_INPUT"
	CodeStorage      = "E_STORAGE"
	CodeTestFailed   = "E_TEST_FAILED"
	CodeRemoveFailed = "E_REMOVE_FAILED"
	CodeImportFailed = "E_IMPORT_FAILED"
	CodeExportFailed = "E_EXPORT_FAILED"
	CodeDedupeFailed = "E_DEDUPE_FAILED"
)

// ExitError carries the process exit code for a failed command. main
// prints it and exits with Code.
type ExitError struct {
	Code    int
	Message string
	Err     error // optional cause
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError caused by err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the code of the first ExitError in err's chain, or
// ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		return ExitFailure
	}
	return exitErr.Code
}

// OutputFormatter writes command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope for every command result.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
}

// CLIError describes a failed command in JSON output.
type CLIError struct {
	Code    string      `json:"code"` // one of the Code* constants
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// BookmarkList is the JSON payload for commands that return bookmarks.
type BookmarkList struct {
	Bookmarks []bookmark.Bookmark `json:"bookmarks"`
	Count     int                 `json:"count"`
}

func (f *OutputFormatter) isJSON() bool { return f.Format == "json" }

func (f *OutputFormatter) encode(resp CLIResponse) error {
	return json.NewEncoder(f.Writer).Encode(resp)
}

// Success writes data. Text mode prints it with fmt.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.isJSON() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes an error response. Text mode shows details only when
// verbose.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.isJSON() {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Bookmarks writes a listing, one line per bookmark in text mode.
func (f *OutputFormatter) Bookmarks(bs []bookmark.Bookmark) error {
	if f.isJSON() {
		return f.Success(BookmarkList{Bookmarks: bs, Count: len(bs)})
	}

	if len(bs) == 0 {
		fmt.Fprintln(f.Writer, "No bookmarks.")
		return nil
	}
	for _, b := range bs {
		fmt.Fprintln(f.Writer, formatBookmark(b))
	}
	return nil
}

// Bookmark writes a single bookmark.
func (f *OutputFormatter) Bookmark(b bookmark.Bookmark) error {
	if f.isJSON() {
		return f.Success(b)
	}
	_, err := fmt.Fprintln(f.Writer, formatBookmark(b))
	return err
}

// VerboseLog writes a diagnostic line when verbose. It goes to ErrWriter
// so JSON on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// formatBookmark renders "id  book@page(x,y)  date  name".
func formatBookmark(b bookmark.Bookmark) string {
	line := fmt.Sprintf("%s  %s  %s", b.ID, b.Position(), b.Date.Format(time.RFC3339))
	if b.HasName() {
		line += fmt.Sprintf("  %q", b.DisplayName())
	}
	return line
}
