package dictionary

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/filter"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrInvalidState     = errors.New("invalid state")
	ErrCorruptBlob      = errors.New("corrupt dictionary blob")
)

// ValueCount is one distinct value and how many rows carry it.
type ValueCount struct {
	Value any   `json:"value"`
	Count int64 `json:"count"`
}

// QueryDescription records how an entry's rows were fetched.
type QueryDescription struct {
	Table     string            `json:"table"`
	Attribute string            `json:"attribute"`
	Filter    filter.Expression `json:"filter"`
	Statement string            `json:"statement"`
}

// Entry is the observed distribution of one attribute.
type Entry struct {
	Attribute  string           `json:"attribute"`
	Query      QueryDescription `json:"query"`
	TotalCount int64            `json:"total_count"`
	Values     []ValueCount     `json:"values"`
}

// Validate checks that counts are positive, values are distinct and the
// counts add up to TotalCount.
func (e Entry) Validate() error {
	if e.Attribute == "" {
		return fmt.Errorf("%w: entry without attribute name", ErrInvalidState)
	}
	var sum int64
	seen := make(map[any]struct{}, len(e.Values))
	for _, v := range e.Values {
		if v.Count <= 0 {
			return fmt.Errorf("%w: %s: non-positive count %d for %v", ErrInvalidState, e.Attribute, v.Count, v.Value)
		}
		if _, dup := seen[v.Value]; dup {
			return fmt.Errorf("%w: %s: duplicate value %v", ErrInvalidState, e.Attribute, v.Value)
		}
		seen[v.Value] = struct{}{}
		sum += v.Count
	}
	if sum != e.TotalCount {
		return fmt.Errorf("%w: %s: counts sum to %d, total is %d", ErrInvalidState, e.Attribute, sum, e.TotalCount)
	}
	return nil
}

// Share returns the fraction of rows that carry the i-th value.
func (e Entry) Share(i int) float64 {
	if e.TotalCount == 0 || i < 0 || i >= len(e.Values) {
		return 0
	}
	return float64(e.Values[i].Count) / float64(e.TotalCount)
}

func (e Entry) clone() Entry {
	c := e
	c.Values = append([]ValueCount(nil), e.Values...)
	c.Query.Filter.Clauses = append([]filter.Clause(nil), e.Query.Filter.Clauses...)
	return c
}

// normalizeRows drops non-positive counts, merges repeated values and orders
// the result by count descending, keeping arrival order for ties.
func normalizeRows(rows []ValueCount) ([]ValueCount, int64) {
	out := make([]ValueCount, 0, len(rows))
	index := make(map[any]int, len(rows))
	for _, r := range rows {
		if r.Count <= 0 {
			continue
		}
		v := filter.Normalize(r.Value)
		if i, ok := index[v]; ok {
			out[i].Count += r.Count
			continue
		}
		index[v] = len(out)
		out = append(out, ValueCount{Value: v, Count: r.Count})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })

	var total int64
	for _, r := range out {
		total += r.Count
	}
	return out, total
}
