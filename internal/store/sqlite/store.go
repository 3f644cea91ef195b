// Package sqlite stores boards in a single SQLite file using the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/inamate/whiteboard/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS boards (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	name       TEXT NOT NULL,
	document   BLOB NOT NULL,
	revision   TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS boards_owner ON boards (owner_id, updated_at);`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; sqlite serializes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) CreateBoard(ctx context.Context, b store.Board, doc []byte) (*store.Board, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	b.CreatedAt, b.UpdatedAt = now, now
	b.Revision = store.NewRevision()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO boards (id, owner_id, name, document, revision, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.OwnerID, b.Name, doc, b.Revision, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("insert board: %w", err)
	}
	return &b, nil
}

func (s *Store) GetBoard(ctx context.Context, ownerID, id string) (*store.Board, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, revision, created_at, updated_at FROM boards WHERE id = ? AND owner_id = ?`,
		id, ownerID)
	b, err := scanBoard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get board: %w", err)
	}
	return b, nil
}

func (s *Store) ListBoards(ctx context.Context, ownerID string) ([]store.Board, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name, revision, created_at, updated_at FROM boards WHERE owner_id = ? ORDER BY updated_at DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	boards := []store.Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, *b)
	}
	return boards, rows.Err()
}

func (s *Store) DeleteBoard(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	return expectOne(res)
}

func (s *Store) LoadDocument(ctx context.Context, ownerID, id string) ([]byte, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM boards WHERE id = ? AND owner_id = ?`, id, ownerID).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("load document: %w", err)
	}
	return doc, nil
}

func (s *Store) SaveDocument(ctx context.Context, ownerID, id string, doc []byte) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE boards SET document = ?, revision = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		doc, store.NewRevision(), s.now().UTC().UnixMilli(), id, ownerID)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return expectOne(res)
}

func (s *Store) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanBoard(row scanner) (*store.Board, error) {
	var (
		b                store.Board
		created, updated int64
	)
	if err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Revision, &created, &updated); err != nil {
		return nil, err
	}
	b.CreatedAt = time.UnixMilli(created).UTC()
	b.UpdatedAt = time.UnixMilli(updated).UTC()
	return &b, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
