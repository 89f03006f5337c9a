package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLStore keeps blobs in sqlite tables next to other metadata.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates the blob tables if needed.
func NewSQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	if err := EnsureMetaTables(ctx, db); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return &SQLStore{db: db}, nil
}

func EnsureMetaTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tabledict_blobs (
            blob_key TEXT PRIMARY KEY,
            blob_data BLOB NOT NULL,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS tabledict_namespaces (
            prefix TEXT PRIMARY KEY,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tabledict_blobs WHERE blob_key = ?`, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %w", ErrStorage, key, err)
	}
	return n > 0, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob_data FROM tabledict_blobs WHERE blob_key = ?`, key).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("%w: get %s: %w", ErrStorage, key, err)
	}
	return data, nil
}

// Put stores or replaces the blob at key.
func (s *SQLStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO tabledict_blobs(blob_key, blob_data, updated_at)
        VALUES(?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(blob_key)
        DO UPDATE SET blob_data=excluded.blob_data, updated_at=CURRENT_TIMESTAMP`,
		key, data)
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", ErrStorage, key, err)
	}
	return nil
}

func (s *SQLStore) EnsureNamespace(ctx context.Context, prefix string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO tabledict_namespaces(prefix) VALUES(?) ON CONFLICT(prefix) DO NOTHING`, prefix)
	if err != nil {
		return fmt.Errorf("%w: namespace %s: %w", ErrStorage, prefix, err)
	}
	return nil
}

// Namespaces lists the prefixes recorded by EnsureNamespace.
func (s *SQLStore) Namespaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT prefix FROM tabledict_namespaces ORDER BY prefix`)
	if err != nil {
		return nil, fmt.Errorf("%w: list namespaces: %w", ErrStorage, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("%w: list namespaces: %w", ErrStorage, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
