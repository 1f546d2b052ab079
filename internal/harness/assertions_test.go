package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulclufox/EpubViewerKit/internal/bookmark"
)

func sampleBookmarks() []bookmark.Bookmark {
	date := time.Date(2025, 12, 28, 9, 0, 0, 0, time.UTC)
	return []bookmark.Bookmark{
		{ID: "bm-0001", BookID: "kapalam", PageNumber: 5, PageOffsetX: 10, PageOffsetY: 20, Date: date, Name: bookmark.Name("chapter mark")},
		{ID: "bm-0002", BookID: "randamoozham", PageNumber: 1, Date: date},
	}
}

func TestEvaluate_FinalCount(t *testing.T) {
	all := sampleBookmarks()

	assert.NoError(t, evaluate(Assertion{Type: AssertFinalCount, Count: 2}, all))

	err := evaluate(Assertion{Type: AssertFinalCount, Count: 3}, all)
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "3", aerr.Expected)
	assert.Equal(t, "2", aerr.Actual)
}

func TestEvaluate_FinalIDs(t *testing.T) {
	all := sampleBookmarks()

	assert.NoError(t, evaluate(Assertion{Type: AssertFinalIDs, IDs: []string{"bm-0001", "bm-0002"}}, all))
	assert.Error(t, evaluate(Assertion{Type: AssertFinalIDs, IDs: []string{"bm-0002", "bm-0001"}}, all))
	assert.NoError(t, evaluate(Assertion{Type: AssertFinalIDs}, nil))
}

func TestEvaluate_Absent(t *testing.T) {
	all := sampleBookmarks()

	assert.NoError(t, evaluate(Assertion{Type: AssertAbsent, ID: "bm-0404"}, all))

	err := evaluate(Assertion{Type: AssertAbsent, ID: "bm-0001"}, all)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kapalam@5(10,20)")
}

func TestEvaluate_FinalBookmark(t *testing.T) {
	all := sampleBookmarks()

	assert.NoError(t, evaluate(Assertion{
		Type:   AssertFinalBookmark,
		ID:     "bm-0001",
		Expect: map[string]any{"book_id": "kapalam", "page_number": 5, "bookmark_name": "chapter mark"},
	}, all))

	err := evaluate(Assertion{Type: AssertFinalBookmark, ID: "bm-0001", Expect: map[string]any{"page_number": 6}}, all)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bm-0001.page_number = 6")

	err = evaluate(Assertion{Type: AssertFinalBookmark, ID: "bm-0002", Expect: map[string]any{"bookmark_name": "x"}}, all)
	require.Error(t, err)

	err = evaluate(Assertion{Type: AssertFinalBookmark, ID: "bm-0404"}, all)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Type: "final_count", Expected: "1", Actual: "0"}
	assert.Equal(t, "assertion failed: final_count: expected 1, actual 0", err.Error())
}
