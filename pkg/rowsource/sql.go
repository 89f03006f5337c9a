package rowsource

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/dictionary"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/filter"
)

// SQL queries a database/sql handle.
type SQL struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQL(db *sql.DB, d Dialect) *SQL {
	return &SQL{db: db, dialect: d}
}

func (s *SQL) Query(ctx context.Context, table, attribute string, expr filter.Expression) (dictionary.Rows, error) {
	q, args, err := BuildQuery(s.dialect, table, attribute, expr)
	if err != nil {
		return dictionary.Rows{}, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return dictionary.Rows{}, err
	}
	defer rows.Close()

	values, err := scanCounts(rows)
	if err != nil {
		return dictionary.Rows{}, err
	}
	return dictionary.Rows{Statement: q, Values: values}, nil
}

// scanCounts reads (value, count) rows. The value column is scanned into an
// untyped destination and normalized so driver []byte becomes string.
func scanCounts(rows *sql.Rows) ([]dictionary.ValueCount, error) {
	var out []dictionary.ValueCount
	for rows.Next() {
		var (
			value any
			count any
		)
		if err := rows.Scan(&value, &count); err != nil {
			return nil, err
		}
		n, err := toInt64(count)
		if err != nil {
			return nil, err
		}
		out = append(out, dictionary.ValueCount{Value: filter.Normalize(value), Count: n})
	}
	return out, rows.Err()
}

func toInt64(v any) (int64, error) {
	switch x := filter.Normalize(v).(type) {
	case int64:
		return x, nil
	case float64:
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("count %q is not an integer", x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("count has unexpected type %T", v)
	}
}
