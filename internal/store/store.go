// Package store defines board persistence. Backends live in subpackages.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("board not found")

// Board is the metadata stored next to a board's document.
type Board struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Revision  string    `json:"revision"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store keeps boards and their serialized documents. Every lookup is scoped
// to the owning user; a board owned by someone else reads as ErrNotFound.
// Documents are opaque bytes here; validation happens before they reach a
// Store.
type Store interface {
	CreateBoard(ctx context.Context, b Board, doc []byte) (*Board, error)
	GetBoard(ctx context.Context, ownerID, id string) (*Board, error)
	ListBoards(ctx context.Context, ownerID string) ([]Board, error)
	DeleteBoard(ctx context.Context, ownerID, id string) error

	LoadDocument(ctx context.Context, ownerID, id string) ([]byte, error)
	// SaveDocument replaces the document and assigns a new revision.
	SaveDocument(ctx context.Context, ownerID, id string, doc []byte) error

	Close() error
}
