package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rahulclufox/EpubViewerKit/internal/bookmark"
	"github.com/rahulclufox/EpubViewerKit/internal/logger"
	"github.com/rahulclufox/EpubViewerKit/internal/service"
	"github.com/rahulclufox/EpubViewerKit/internal/store"
	"github.com/rahulclufox/EpubViewerKit/internal/testutil"
)

// errNotFound marks a persist step whose target id is not stored.
var errNotFound = errors.New("bookmark not found")

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and id generator.
type Harness struct {
	svc *service.Service
	seq int64

	// reported collects failures the façade reports instead of returning.
	reported []string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution errors (the store could not be opened) are returned; expect
// clause and assertion failures are recorded in the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, logger.NewNop())
}

// RunWithLogger is Run with façade diagnostics sent to log.
func RunWithLogger(scenario *Scenario, log logger.Logger) (*Result, error) {
	step, err := scenario.clockStep()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(store.Config{Path: ":memory:"})
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{}
	h.svc = service.New(st,
		service.WithLogger(log.With(logger.String("scenario", scenario.Name))),
		service.WithClock(testutil.NewFixedClock(testutil.DefaultEpoch, step)),
		service.WithIDGenerator(testutil.NewSequenceGenerator(scenario.IDPrefix)),
		service.WithErrorHandler(func(op string, b bookmark.Bookmark, err error) {
			h.reported = append(h.reported, fmt.Sprintf("%s %s: %v", op, b.ID, err))
		}),
	)

	ctx := context.Background()
	result := NewResult()

	for i, s := range scenario.Steps {
		h.reported = nil
		out, stepErr := h.execute(ctx, s)
		if len(h.reported) > 0 && stepErr == nil {
			stepErr = errors.New(strings.Join(h.reported, "; "))
		}

		h.seq++
		traceResult := out
		if stepErr != nil {
			traceResult = map[string]any{"error": stepErr.Error()}
		}
		result.AddTrace(h.seq, s.Op, argsMap(s.Args), traceResult)

		for _, msg := range checkExpect(s, out, stepErr) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", i, s.Op, msg))
		}
	}

	for _, msg := range EvaluateAssertions(ctx, h.svc, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// execute performs one step and returns its canonical outcome.
func (h *Harness) execute(ctx context.Context, s Step) (map[string]any, error) {
	a := s.Args
	switch s.Op {
	case OpCreate:
		b, err := h.svc.NewBookmark(a.position(), a.Name)
		if err != nil {
			return nil, err
		}
		out := h.svc.Persist(ctx, b)
		if !out.OK() {
			return nil, out.Err
		}
		return map[string]any{"bookmark": bookmark.CanonicalFields(out.Bookmark)}, nil

	case OpPersist:
		b, ok, err := h.svc.GetByID(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", errNotFound, a.ID)
		}
		if a.Name != nil {
			b.Name = bookmark.Name(*a.Name)
		}
		out := h.svc.Persist(ctx, b)
		if !out.OK() {
			return nil, out.Err
		}
		return map[string]any{"bookmark": bookmark.CanonicalFields(out.Bookmark)}, nil

	case OpRemove:
		h.svc.Remove(ctx, bookmark.Bookmark{ID: a.ID})
		return map[string]any{}, nil

	case OpRemoveByID:
		h.svc.RemoveByID(ctx, a.ID)
		return map[string]any{}, nil

	case OpGetByID:
		b, ok, err := h.svc.GetByID(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		return lookupResult(b, ok), nil

	case OpGetByPosition:
		b, ok, err := h.svc.GetByMatchingPosition(ctx, a.position())
		if err != nil {
			return nil, err
		}
		return lookupResult(b, ok), nil

	case OpListForBook:
		bs, err := h.svc.ListForBook(ctx, a.BookID, a.Page)
		if err != nil {
			return nil, err
		}
		return listResult(bs), nil

	case OpListAll:
		bs, err := h.svc.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		return listResult(bs), nil

	case OpDedupe:
		n, err := h.svc.RemoveDuplicatePositions(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"removed": n}, nil
	}
	return nil, fmt.Errorf("unknown op %q", s.Op)
}

func (a StepArgs) position() bookmark.Position {
	page := 0
	if a.Page != nil {
		page = *a.Page
	}
	return bookmark.Position{BookID: a.BookID, PageNumber: page, PageOffsetX: a.X, PageOffsetY: a.Y}
}

// argsMap returns the set fields of a as a canonical map.
func argsMap(a StepArgs) map[string]any {
	m := map[string]any{}
	if a.ID != "" {
		m["id"] = a.ID
	}
	if a.BookID != "" {
		m["book_id"] = a.BookID
	}
	if a.Page != nil {
		m["page"] = *a.Page
	}
	if a.X != 0 {
		m["x"] = a.X
	}
	if a.Y != 0 {
		m["y"] = a.Y
	}
	if a.Name != nil {
		m["name"] = *a.Name
	}
	return m
}

func lookupResult(b bookmark.Bookmark, ok bool) map[string]any {
	if !ok {
		return map[string]any{"found": false}
	}
	return map[string]any{"found": true, "bookmark": bookmark.CanonicalFields(b)}
}

func listResult(bs []bookmark.Bookmark) map[string]any {
	list := make([]any, len(bs))
	for i, b := range bs {
		list[i] = bookmark.CanonicalFields(b)
	}
	return map[string]any{"bookmarks": list}
}

// checkExpect compares a step outcome with its expect clause and returns
// one message per mismatch.
func checkExpect(s Step, out map[string]any, err error) []string {
	e := s.Expect
	if e == nil {
		e = &Expect{}
	}

	if e.Error != "" {
		if err == nil {
			return []string{fmt.Sprintf("expected error containing %q, got success", e.Error)}
		}
		if !strings.Contains(err.Error(), e.Error) {
			return []string{fmt.Sprintf("expected error containing %q, got %q", e.Error, err.Error())}
		}
		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", err)}
	}

	var errs []string
	if e.Found != nil {
		found, _ := out["found"].(bool)
		if found != *e.Found {
			errs = append(errs, fmt.Sprintf("found = %v, want %v", found, *e.Found))
		}
	}

	if fields, ok := out["bookmark"].(map[string]any); ok {
		if e.ID != "" && fields["bookmark_id"] != e.ID {
			errs = append(errs, fmt.Sprintf("id = %v, want %q", fields["bookmark_id"], e.ID))
		}
		if e.Name != nil {
			name, present := fields["bookmark_name"]
			if !present || name != *e.Name {
				errs = append(errs, fmt.Sprintf("name = %v, want %q", name, *e.Name))
			}
		}
	} else if e.ID != "" || e.Name != nil {
		errs = append(errs, "expected a bookmark, got none")
	}

	if list, ok := out["bookmarks"].([]any); ok {
		if e.Count != nil && len(list) != *e.Count {
			errs = append(errs, fmt.Sprintf("count = %d, want %d", len(list), *e.Count))
		}
		if e.IDs != nil {
			got := make([]string, len(list))
			for i, item := range list {
				got[i], _ = item.(map[string]any)["bookmark_id"].(string)
			}
			if strings.Join(got, ",") != strings.Join(e.IDs, ",") {
				errs = append(errs, fmt.Sprintf("ids = %v, want %v", got, e.IDs))
			}
		}
	}

	if removed, ok := out["removed"].(int); ok && e.Count != nil && removed != *e.Count {
		errs = append(errs, fmt.Sprintf("removed = %d, want %d", removed, *e.Count))
	}

	return errs
}
