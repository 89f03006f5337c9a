package rowsource

import (
	"context"

	"gorm.io/gorm"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/dictionary"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/filter"
)

// Gorm queries through a gorm connection, e.g. MySQL or ClickHouse via its
// MySQL protocol port.
type Gorm struct {
	db      *gorm.DB
	dialect Dialect
}

func NewGorm(db *gorm.DB, d Dialect) *Gorm {
	return &Gorm{db: db, dialect: d}
}

func (g *Gorm) Query(ctx context.Context, table, attribute string, expr filter.Expression) (dictionary.Rows, error) {
	q, args, err := BuildQuery(g.dialect, table, attribute, expr)
	if err != nil {
		return dictionary.Rows{}, err
	}
	rows, err := g.db.WithContext(ctx).Raw(q, args...).Rows()
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
