// Package postgres stores boards in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inamate/whiteboard/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS boards (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	name       TEXT NOT NULL,
	document   JSONB NOT NULL,
	revision   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS boards_owner ON boards (owner_id, updated_at DESC);`

var ErrDuplicate = errors.New("board already exists")

type Store struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL, verifies the connection and applies the
// schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) CreateBoard(ctx context.Context, b store.Board, doc []byte) (*store.Board, error) {
	b.Revision = store.NewRevision()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO boards (id, owner_id, name, document, revision)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		b.ID, b.OwnerID, b.Name, doc, b.Revision,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert board: %w", err)
	}
	return &b, nil
}

func (s *Store) GetBoard(ctx context.Context, ownerID, id string) (*store.Board, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, revision, created_at, updated_at
		 FROM boards WHERE id = $1 AND owner_id = $2`, id, ownerID)

	var b store.Board
	if err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Revision, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get board: %w", err)
	}
	return &b, nil
}

func (s *Store) ListBoards(ctx context.Context, ownerID string) ([]store.Board, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, name, revision, created_at, updated_at
		 FROM boards WHERE owner_id = $1 ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}

	boards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Board, error) {
		var b store.Board
		err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Revision, &b.CreatedAt, &b.UpdatedAt)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect boards: %w", err)
	}
	if boards == nil {
		boards = []store.Board{}
	}
	return boards, nil
}

func (s *Store) DeleteBoard(ctx context.Context, ownerID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM boards WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) LoadDocument(ctx context.Context, ownerID, id string) ([]byte, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT document FROM boards WHERE id = $1 AND owner_id = $2`, id, ownerID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("load document: %w", err)
	}
	return doc, nil
}

func (s *Store) SaveDocument(ctx context.Context, ownerID, id string, doc []byte) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE boards SET document = $1, revision = $2, updated_at = $3
		 WHERE id = $4 AND owner_id = $5`,
		doc, store.NewRevision(), time.Now().UTC(), id, ownerID)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
