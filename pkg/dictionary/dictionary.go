// Package dictionary builds per-attribute value frequency tables for a
// database table and draws random values that follow those frequencies.
package dictionary

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/filter"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/sampler"
)

// Rows is what a RowSource returns for one attribute: the statement it ran
// and the grouped value counts, ordered by count descending.
type Rows struct {
	Statement string
	Values    []ValueCount
}

// RowSource fetches grouped value counts for an attribute of a table.
type RowSource interface {
	Query(ctx context.Context, table, attribute string, expr filter.Expression) (Rows, error)
}

// Dictionary holds the entries of one table. It is not safe for concurrent
// mutation.
type Dictionary struct {
	table   string
	entries map[string]Entry

	source RowSource
	rand   sampler.RandomSource
	log    *zap.Logger
}

type Option func(*Dictionary)

func WithRowSource(src RowSource) Option {
	return func(d *Dictionary) { d.source = src }
}

// WithRandomSource replaces the process-wide generator, e.g. with
// sampler.NewSeeded for reproducible draws.
func WithRandomSource(src sampler.RandomSource) Option {
	return func(d *Dictionary) { d.rand = src }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Dictionary) { d.log = l }
}

// New returns an empty dictionary for table.
func New(table string, opts ...Option) *Dictionary {
	d := &Dictionary{
		table:   table,
		entries: make(map[string]Entry),
		rand:    sampler.Default(),
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Dictionary) Table() string { return d.table }

// Len returns the number of known attributes.
func (d *Dictionary) Len() int { return len(d.entries) }

// Attributes returns the known attribute names in lexical order.
func (d *Dictionary) Attributes() []string {
	names := make([]string, 0, len(d.entries))
	for k := range d.entries {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// AttributeNames converts loosely typed input into attribute names. Any
// element that is not a string fails the whole conversion.
func AttributeNames(in []any) ([]string, error) {
	names := make([]string, 0, len(in))
	for i, v := range in {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: attribute #%d is %T, attributes need to be string names", ErrInvalidInput, i, v)
		}
		names = append(names, s)
	}
	return names, nil
}

func checkAttribute(attribute string) error {
	if !filter.ValidIdentifier(attribute) {
		return fmt.Errorf("%w: %q is not a valid attribute name", ErrInvalidInput, attribute)
	}
	return nil
}

// Generate queries the row source for attribute under filters and records
// the resulting entry, replacing any previous one. An empty result is still
// recorded.
func (d *Dictionary) Generate(ctx context.Context, attribute string, filters map[string]any) error {
	if err := checkAttribute(attribute); err != nil {
		return err
	}
	e, err := d.fetch(ctx, attribute, filter.Build(filters))
	if err != nil {
		return err
	}
	d.entries[attribute] = e
	return nil
}

// BulkGenerate generates every attribute under the same filters. All names
// are checked before the first query and entries are committed only when
// every query succeeded, so a failure leaves the dictionary unchanged.
func (d *Dictionary) BulkGenerate(ctx context.Context, attributes []string, filters map[string]any) error {
	for _, a := range attributes {
		if err := checkAttribute(a); err != nil {
			return err
		}
	}
	expr := filter.Build(filters)
	staged := make([]Entry, 0, len(attributes))
	for _, a := range attributes {
		e, err := d.fetch(ctx, a, expr)
		if err != nil {
			return err
		}
		staged = append(staged, e)
	}
	for _, e := range staged {
		d.entries[e.Attribute] = e
	}
	return nil
}

func (d *Dictionary) fetch(ctx context.Context, attribute string, expr filter.Expression) (Entry, error) {
	if d.source == nil {
		return Entry{}, fmt.Errorf("%w: dictionary for %s has no row source", ErrInvalidState, d.table)
	}
	rows, err := d.source.Query(ctx, d.table, attribute, expr)
	if err != nil {
		return Entry{}, fmt.Errorf("query %s.%s: %w", d.table, attribute, err)
	}
	values, total := normalizeRows(rows.Values)
	d.log.Debug("generated dictionary entry",
		zap.String("table", d.table),
		zap.String("attribute", attribute),
		zap.Stringer("filter", expr),
		zap.Int("distinct", len(values)),
		zap.Int64("total", total))

	return Entry{
		Attribute: attribute,
		Query: QueryDescription{
			Table:     d.table,
			Attribute: attribute,
			Filter:    expr,
			Statement: rows.Statement,
		},
		TotalCount: total,
		Values:     values,
	}, nil
}

// HasEntry reports whether attribute has been generated or loaded.
func (d *Dictionary) HasEntry(attribute string) bool {
	_, ok := d.entries[attribute]
	return ok
}

// Entry returns a copy of the entry for attribute and whether it exists.
func (d *Dictionary) Entry(attribute string) (Entry, bool) {
	e, ok := d.entries[attribute]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// SampleValue draws a value of attribute with probability proportional to
// its observed count.
func (d *Dictionary) SampleValue(attribute string) (any, error) {
	e, ok := d.entries[attribute]
	if !ok {
		return nil, fmt.Errorf("%w: dictionary of %s does not know %q yet", ErrUnknownAttribute, d.table, attribute)
	}
	return d.draw(e)
}

// Sample draws n values of attribute.
func (d *Dictionary) Sample(attribute string, n int) ([]any, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative sample size %d", ErrInvalidInput, n)
	}
	e, ok := d.entries[attribute]
	if !ok {
		return nil, fmt.Errorf("%w: dictionary of %s does not know %q yet", ErrUnknownAttribute, d.table, attribute)
	}
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.draw(e)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (d *Dictionary) draw(e Entry) (any, error) {
	counts := make([]int64, len(e.Values))
	for i, v := range e.Values {
		counts[i] = v.Count
	}
	i, err := sampler.Draw(d.rand, counts, e.TotalCount)
	if err != nil {
		return nil, fmt.Errorf("%w: sample %s.%s: %w", ErrInvalidState, d.table, e.Attribute, err)
	}
	return e.Values[i].Value, nil
}
