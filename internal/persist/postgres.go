package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/config"
)

// PostgresStore keeps documents in the documents table. Rows whose
// fingerprint matches the saved data are left untouched.
type PostgresStore struct {
	db *DB
}

// OpenPostgres connects, applies migrations and returns the store.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*PostgresStore, error) {
	db, err := NewDB(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, db.Pool, log); err != nil {
		db.Close()
		return nil, err
	}
	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.Pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE path = $1`, path,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return data, nil
}

func (s *PostgresStore) Save(ctx context.Context, path string, data []byte) error {
	fp := ast.FingerprintOf(data)
	tag, err := s.db.Pool.Exec(ctx,
		`INSERT INTO documents (path, data, fingerprint, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (path) DO UPDATE
		 SET data = EXCLUDED.data, fingerprint = EXCLUDED.fingerprint, updated_at = now()
		 WHERE documents.fingerprint <> EXCLUDED.fingerprint`,
		path, data, fp[:],
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if tag.RowsAffected() == 0 {
		s.db.log.Debug("document unchanged", zap.String("path", path), zap.Stringer("fingerprint", fp))
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, path string) error {
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM documents WHERE path = $1`, path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT path FROM documents WHERE starts_with(path, $1) ORDER BY path COLLATE "C"`, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	paths, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return paths, nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
