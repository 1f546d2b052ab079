package querysql

import (
	"fmt"
	"strings"

	"github.com/rahulclufox/EpubViewerKit/internal/query"
)

// Table is the bookmark table name.
const Table = "bookmarks"

// Columns is the column list every compiled query selects, in the order
// the store scans them.
var Columns = []string{
	"bookmark_id",
	"book_id",
	"page_number",
	"page_offset_x",
	"page_offset_y",
	"created_at",
	"bookmark_name",
}

// SQLCompiler compiles query.Select values to parameterized SQLite.
//
// CRITICAL: every query ends its ORDER BY with "seq ASC" so results are
// deterministic, including ties.
// CRITICAL: values are always parameterized, never interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts q to SQL. Returns (sql, params, error).
func (c *SQLCompiler) Compile(q query.Select) (string, []any, error) {
	if err := query.Validate(q); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(Columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(Table)

	var params []any
	if q.Filter != nil {
		where, whereParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = whereParams
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(c.orderKey(q.Order))

	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}

	return b.String(), params, nil
}

// orderKey returns the ORDER BY clause body. seq is the insertion
// counter, so it is both the natural order and the stable tie-break.
func (c *SQLCompiler) orderKey(o query.Order) string {
	switch o {
	case query.OrderDateDesc:
		return "created_at DESC, seq ASC"
	default:
		return "seq ASC"
	}
}

// compilePredicate compiles a predicate to a WHERE fragment.
func (c *SQLCompiler) compilePredicate(p query.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case query.Equals:
		return c.compileEquals(pred)
	case *query.Equals:
		return c.compileEquals(*pred)
	case query.And:
		return c.compileAnd(pred)
	case *query.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles an Equals predicate to "field = ?". Text values
// compare with BINARY collation so "Kapalam" and "kapalam" are distinct
// books.
func (c *SQLCompiler) compileEquals(eq query.Equals) (string, []any, error) {
	param, err := valueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value for %s: %w", eq.Field, err)
	}
	if _, isText := eq.Value.(query.Text); isText {
		return fmt.Sprintf("%s = ? COLLATE BINARY", eq.Field), []any{param}, nil
	}
	return fmt.Sprintf("%s = ?", eq.Field), []any{param}, nil
}

// compileAnd joins the sub-predicates with AND.
func (c *SQLCompiler) compileAnd(and query.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, p, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}

	return strings.Join(parts, " AND "), params, nil
}

// valueToParam converts a query.Value to a database/sql parameter.
func valueToParam(v query.Value) (any, error) {
	switch val := v.(type) {
	case query.Text:
		return string(val), nil
	case query.Int:
		return int64(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}
