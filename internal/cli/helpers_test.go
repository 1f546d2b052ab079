package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rahulclufox/EpubViewerKit/internal/bookmark"
)

// seedYAML holds four bookmarks with fixed dates. bm-1 and bm-4 share a
// position.
const seedYAML = `bookmarks:
  - bookmark_id: bm-1
    book_id: kapalam
    page_number: 5
    page_offset_x: 10
    page_offset_y: 20
    date: 2025-12-28T09:00:00Z
    bookmark_name: chapter mark
  - bookmark_id: bm-2
    book_id: kapalam
    page_number: 7
    page_offset_x: 0
    page_offset_y: 0
    date: 2025-12-28T09:05:00Z
  - bookmark_id: bm-3
    book_id: randamoozham
    page_number: 1
    page_offset_x: 0
    page_offset_y: 0
    date: 2025-12-28T09:10:00Z
  - bookmark_id: bm-4
    book_id: kapalam
    page_number: 5
    page_offset_x: 10
    page_offset_y: 20
    date: 2025-12-28T09:15:00Z
`

// cliEnv runs the root command against one database in a temp dir, with
// HOME and READMARK_* isolated from the developer's machine.
type cliEnv struct {
	t   *testing.T
	dir string
	db  string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{"READMARK_CONFIG", "READMARK_DATABASE_PATH", "READMARK_LOG_LEVEL", "READMARK_PRETTY_LOG"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	dir := t.TempDir()
	return &cliEnv{t: t, dir: dir, db: filepath.Join(dir, "marks.db")}
}

// run executes readmark with args and returns stdout.
func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--db", e.db}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// mustRun is run that fails the test on error.
func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "readmark %v\n%s", args, out)
	return out
}

// writeFile writes body into the env's temp dir and returns its path.
func (e *cliEnv) writeFile(name, body string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(e.t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// seed imports seedYAML.
func (e *cliEnv) seed() {
	e.t.Helper()
	e.mustRun("import", e.writeFile("seed.yaml", seedYAML))
}

// decodeBookmark parses a JSON success response carrying one bookmark.
func decodeBookmark(t *testing.T, out string) bookmark.Bookmark {
	t.Helper()
	var resp struct {
		Status string            `json:"status"`
		Data   bookmark.Bookmark `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

// decodeList parses a JSON success response carrying a bookmark list and
// returns the ids in order.
func decodeList(t *testing.T, out string) []string {
	t.Helper()
	var resp struct {
		Status string       `json:"status"`
		Data   BookmarkList `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, len(resp.Data.Bookmarks), resp.Data.Count)

	ids := make([]string, len(resp.Data.Bookmarks))
	for i, b := range resp.Data.Bookmarks {
		ids[i] = b.ID
	}
	return ids
}

// decodeError parses a JSON error response.
func decodeError(t *testing.T, out string) *CLIError {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	return resp.Error
}
