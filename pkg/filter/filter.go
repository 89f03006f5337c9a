// Package filter turns column/value equality constraints into a structured
// WHERE expression that row sources render with bound parameters.
package filter

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Op is a comparison operator. Only equality is produced by Build.
type Op string

const OpEq Op = "="

// Clause is a single column/operator/value constraint.
type Clause struct {
	Column string `json:"column"`
	Op     Op     `json:"op"`
	Value  any    `json:"value"`
}

// Expression is a conjunction of clauses. An expression with no clauses
// matches every row.
type Expression struct {
	Clauses []Clause `json:"clauses,omitempty"`
}

// Dialect quotes identifiers and numbers placeholders for a SQL backend.
type Dialect interface {
	QuoteIdent(name string) string
	// Placeholder returns the bind marker for the n-th argument, starting at 1.
	Placeholder(n int) string
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidIdentifier reports whether name is safe to place in SQL text as a
// table or column name, optionally schema qualified.
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// Build converts filters into an expression with one equality clause per key,
// ordered by column name.
func Build(filters map[string]any) Expression {
	if len(filters) == 0 {
		return Expression{}
	}
	columns := make([]string, 0, len(filters))
	for k := range filters {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	clauses := make([]Clause, 0, len(columns))
	for _, c := range columns {
		clauses = append(clauses, Clause{Column: c, Op: OpEq, Value: Normalize(filters[c])})
	}
	return Expression{Clauses: clauses}
}

// MatchesAll reports whether the expression places no constraint on rows.
func (e Expression) MatchesAll() bool {
	return len(e.Clauses) == 0
}

// String renders the expression with inline literals. It is meant for
// diagnostics; queries should go through Where.
func (e Expression) String() string {
	if e.MatchesAll() {
		return "1 = 1"
	}
	parts := make([]string, 0, len(e.Clauses))
	for _, c := range e.Clauses {
		if c.Value == nil {
			parts = append(parts, c.Column+" IS NULL")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", c.Column, c.Op, Literal(c.Value)))
	}
	return strings.Join(parts, " AND ")
}

// Where renders a WHERE term using the dialect's placeholders and returns the
// arguments to bind, in placeholder order.
func (e Expression) Where(d Dialect) (string, []any) {
	if e.MatchesAll() {
		return "WHERE 1 = 1", nil
	}
	var (
		parts = make([]string, 0, len(e.Clauses))
		args  = make([]any, 0, len(e.Clauses))
	)
	for _, c := range e.Clauses {
		col := d.QuoteIdent(c.Column)
		if c.Value == nil {
			parts = append(parts, col+" IS NULL")
			continue
		}
		args = append(args, c.Value)
		parts = append(parts, fmt.Sprintf("%s %s %s", col, c.Op, d.Placeholder(len(args))))
	}
	return "WHERE " + strings.Join(parts, " AND "), args
}

// Columns returns the constrained column names in clause order.
func (e Expression) Columns() []string {
	cols := make([]string, len(e.Clauses))
	for i, c := range e.Clauses {
		cols[i] = c.Column
	}
	return cols
}

// Literal renders v as a SQL literal. Strings are single quoted with embedded
// quotes doubled; numbers are left bare.
func Literal(v any) string {
	switch x := Normalize(v).(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return "'" + x.Format(time.RFC3339Nano) + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(x), "'", "''") + "'"
	}
}

// Normalize maps driver and caller values onto the scalar set used across
// tabledict: nil, string, int64, float64, bool and time.Time.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, string, int64, float64, bool, time.Time:
		return x
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
