package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/rahulclufox/EpubViewerKit/internal/bookmark"
	"github.com/rahulclufox/EpubViewerKit/internal/service"
)

// Assertion type constants.
const (
	AssertFinalCount    = "final_count"
	AssertFinalIDs      = "final_ids"
	AssertFinalBookmark = "final_bookmark"
	AssertAbsent        = "absent"
)

// Assertion validates the store contents after the last step.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_count": number of stored bookmarks equals Count
	// - "final_ids": ids of all bookmarks, in natural order, equal IDs
	// - "final_bookmark": bookmark ID exists and matches Expect
	// - "absent": bookmark ID does not exist
	Type string `yaml:"type"`

	Count int      `yaml:"count,omitempty"`
	IDs   []string `yaml:"ids,omitempty"`
	ID    string   `yaml:"id,omitempty"`

	// Expect is a subset match on canonical field names, e.g. book_id,
	// page_number, bookmark_name.
	Expect map[string]any `yaml:"expect,omitempty"`
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertFinalCount:
		if a.Count < 0 {
			return fmt.Errorf("final_count: count must not be negative")
		}
	case AssertFinalIDs:
	case AssertFinalBookmark, AssertAbsent:
		if a.ID == "" {
			return fmt.Errorf("%s: id is required", a.Type)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, actual %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against svc and returns one
// message per failure.
func EvaluateAssertions(ctx context.Context, svc *service.Service, assertions []Assertion) []string {
	if len(assertions) == 0 {
		return nil
	}

	all, err := svc.ListAll(ctx)
	if err != nil {
		return []string{fmt.Sprintf("assertions: list bookmarks: %v", err)}
	}

	var errs []string
	for _, a := range assertions {
		if err := evaluate(a, all); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(a Assertion, all []bookmark.Bookmark) error {
	switch a.Type {
	case AssertFinalCount:
		if len(all) != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Count), Actual: fmt.Sprint(len(all))}
		}

	case AssertFinalIDs:
		got := make([]string, len(all))
		for i, b := range all {
			got[i] = b.ID
		}
		if strings.Join(got, ",") != strings.Join(a.IDs, ",") {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.IDs), Actual: fmt.Sprint(got)}
		}

	case AssertAbsent:
		if b, ok := find(all, a.ID); ok {
			return &AssertionError{Type: a.Type, Expected: a.ID + " absent", Actual: "found at " + b.Position().String()}
		}

	case AssertFinalBookmark:
		b, ok := find(all, a.ID)
		if !ok {
			return &AssertionError{Type: a.Type, Expected: a.ID + " present", Actual: "not found"}
		}
		fields := bookmark.CanonicalFields(b)
		for k, want := range a.Expect {
			got, present := fields[k]
			if !present || !valuesEqual(want, got) {
				return &AssertionError{
					Type:     a.Type,
					Expected: fmt.Sprintf("%s.%s = %v", a.ID, k, want),
					Actual:   fmt.Sprintf("%v", got),
				}
			}
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func find(all []bookmark.Bookmark, id string) (bookmark.Bookmark, bool) {
	for _, b := range all {
		if b.ID == id {
			return b, true
		}
	}
	return bookmark.Bookmark{}, false
}

// valuesEqual compares a YAML-decoded value with a canonical field value.
// YAML integers decode as int; canonical fields hold int or string.
func valuesEqual(want, got any) bool {
	switch w := want.(type) {
	case int:
		g, ok := got.(int)
		return ok && g == w
	case string:
		g, ok := got.(string)
		return ok && g == w
	}
	return fmt.Sprint(want) == fmt.Sprint(got)
}
