package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the configured backend.
func Open(ctx context.Context, cfg config.StorageConfig) (BlobStore, io.Closer, error) {
	switch strings.ToLower(cfg.Backend) {
	case "file":
		return NewFileStore(cfg.Path), nopCloser{}, nil
	case "memory":
		return NewMemoryStore(), nopCloser{}, nil
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: open %s: %w", ErrStorage, cfg.Path, err)
		}
		db.Exec("PRAGMA journal_mode=WAL;")
		s, err := NewSQLStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
