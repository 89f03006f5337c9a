// Package dictstore caches table dictionaries in a blob store.
//
// Store.Update serializes load, mutate and save for a table inside one
// process. Separate processes saving the same table still race and the last
// writer wins.
package dictstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"go.uber.org/zap"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/dictionary"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/filter"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/storage"
)

const (
	DefaultNamespace = "table_dictionary"
	DefaultSuffix    = ".txt"
)

type Store struct {
	blobs     storage.BlobStore
	namespace string
	suffix    string
	compress  bool
	dictOpts  []dictionary.Option
	log       *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Store)

func WithNamespace(ns string) Option {
	return func(s *Store) { s.namespace = ns }
}

func WithSuffix(suffix string) Option {
	return func(s *Store) { s.suffix = suffix }
}

// WithCompression lz4 compresses saved blobs. Loading detects compression
// from the blob header either way.
func WithCompression(on bool) Option {
	return func(s *Store) { s.compress = on }
}

// WithDictionaryOptions applies opts to every dictionary the store returns.
func WithDictionaryOptions(opts ...dictionary.Option) Option {
	return func(s *Store) { s.dictOpts = append(s.dictOpts, opts...) }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

func New(blobs storage.BlobStore, opts ...Option) *Store {
	s := &Store{
		blobs:     blobs,
		namespace: DefaultNamespace,
		suffix:    DefaultSuffix,
		log:       zap.NewNop(),
		locks:     make(map[string]*sync.Mutex),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CacheKeyFor returns the blob key of table's dictionary.
func (s *Store) CacheKeyFor(table string) string {
	return path.Join(s.namespace, table+s.suffix)
}

func checkTable(table string) error {
	if !filter.ValidIdentifier(table) {
		return fmt.Errorf("%w: %q is not a valid table name", dictionary.ErrInvalidInput, table)
	}
	return nil
}

// Load returns the cached dictionary of table, or an empty one when nothing
// has been saved yet.
func (s *Store) Load(ctx context.Context, table string) (*dictionary.Dictionary, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	key := s.CacheKeyFor(table)
	d := dictionary.New(table, s.dictOpts...)

	ok, err := s.blobs.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Debug("no cached dictionary", zap.String("table", table), zap.String("key", key))
		return d, nil
	}
	blob, err := s.blobs.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return d, nil
	}
	if err != nil {
		return nil, err
	}
	if err := d.UnmarshalBinary(blob); err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	s.log.Debug("loaded dictionary", zap.String("table", table), zap.Int("attributes", d.Len()), zap.Int("bytes", len(blob)))
	return d, nil
}

// Save writes d over any previous blob of its table.
func (s *Store) Save(ctx context.Context, d *dictionary.Dictionary) error {
	if err := checkTable(d.Table()); err != nil {
		return err
	}
	if err := s.blobs.EnsureNamespace(ctx, s.namespace); err != nil {
		return err
	}
	blob, err := d.Encode(dictionary.EncodeOptions{Compress: s.compress})
	if err != nil {
		return err
	}
	key := s.CacheKeyFor(d.Table())
	if err := s.blobs.Put(ctx, key, blob); err != nil {
		return err
	}
	s.log.Info("saved dictionary",
		zap.String("table", d.Table()),
		zap.String("key", key),
		zap.Int("attributes", d.Len()),
		zap.Int("bytes", len(blob)),
		zap.Bool("compressed", s.compress))
	return nil
}

// Update loads table, passes the dictionary to fn and saves it when fn
// succeeds. Calls for the same table are serialized.
func (s *Store) Update(ctx context.Context, table string, fn func(*dictionary.Dictionary) error) error {
	if err := checkTable(table); err != nil {
		return err
	}
	l := s.tableLock(table)
	l.Lock()
	defer l.Unlock()

	d, err := s.Load(ctx, table)
	if err != nil {
		return err
	}
	if err := fn(d); err != nil {
		return err
	}
	return s.Save(ctx, d)
}

func (s *Store) tableLock(table string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[table]
	if !ok {
		l = &sync.Mutex{}
		s.locks[table] = l
	}
	return l
}
