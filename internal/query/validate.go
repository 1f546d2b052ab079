package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQuery is returned by Validate for a malformed query.
var ErrInvalidQuery = errors.New("invalid query")

// Validate checks that q only references known fields, uses a known
// ordering and has a non-negative limit. All problems are reported in one
// error.
//
// Validate is a pure function with no side effects.
func Validate(q Select) error {
	v := &validator{}
	if q.Filter != nil {
		v.validatePredicate(q.Filter)
	}
	switch q.Order {
	case OrderNatural, OrderDateDesc:
	default:
		v.addProblem("unknown order %d", int(q.Order))
	}
	if q.Limit < 0 {
		v.addProblem("negative limit %d", q.Limit)
	}

	if len(v.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidQuery, strings.Join(v.problems, "; "))
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

// validatePredicate recursively validates a predicate node.
func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		v.addProblem("nil predicate")
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	if !KnownFields[eq.Field] {
		v.addProblem("unknown field %q", eq.Field)
	}
	switch eq.Value.(type) {
	case Text, Int:
	case nil:
		v.addProblem("field %q compared to nil", eq.Field)
	default:
		v.addProblem("field %q has unsupported value type %T", eq.Field, eq.Value)
	}
}

func (v *validator) validateAnd(and And) {
	for _, sub := range and.Predicates {
		v.validatePredicate(sub)
	}
}
