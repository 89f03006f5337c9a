// Package rowsource runs the grouped value-count query that feeds a
// dictionary, against database/sql or gorm connections.
package rowsource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/filter"
)

// Dialect implements filter.Dialect for a SQL backend.
type Dialect struct {
	Name       string
	identQuote string
	numbered   bool
}

var (
	SQLite   = Dialect{Name: "sqlite", identQuote: `"`}
	MySQL    = Dialect{Name: "mysql", identQuote: "`"}
	Postgres = Dialect{Name: "postgres", identQuote: `"`, numbered: true}
)

// QuoteIdent quotes each dot separated part of name.
func (d Dialect) QuoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		p = strings.ReplaceAll(p, d.identQuote, d.identQuote+d.identQuote)
		parts[i] = d.identQuote + p + d.identQuote
	}
	return strings.Join(parts, ".")
}

func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

const (
	valueColumn = "dict_value"
	countColumn = "dict_count"
)

// BuildQuery returns the grouped count statement for attribute of table and
// the arguments to bind. NULL values are not counted.
func BuildQuery(d Dialect, table, attribute string, expr filter.Expression) (string, []any, error) {
	for _, name := range append([]string{table, attribute}, expr.Columns()...) {
		if !filter.ValidIdentifier(name) {
			return "", nil, fmt.Errorf("invalid identifier %q", name)
		}
	}
	attr := d.QuoteIdent(attribute)
	where, args := expr.Where(d)
	q := fmt.Sprintf("SELECT %s AS %s, COUNT(%s) AS %s FROM %s %s GROUP BY %s HAVING COUNT(%s) > 0 ORDER BY %s DESC",
		attr, valueColumn, attr, countColumn, d.QuoteIdent(table), where, attr, attr, countColumn)
	return q, args, nil
}
