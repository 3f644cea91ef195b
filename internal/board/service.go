// Package board exposes boards and their documents over HTTP.
package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/store"
	"github.com/inamate/whiteboard/internal/typeid"
)

var (
	ErrNotFound  = store.ErrNotFound
	ErrBoardBusy = errors.New("board is open in an editing session")
	ErrTooLarge  = errors.New("document exceeds the layer limit")
)

// Sessions reports boards currently held by a live editing session.
type Sessions interface {
	Active(boardID string) bool
}

type Service struct {
	store     store.Store
	sessions  Sessions
	maxLayers int
}

func NewService(st store.Store, sessions Sessions, maxLayers int) *Service {
	return &Service{store: st, sessions: sessions, maxLayers: maxLayers}
}

// Create makes a board owned by ownerID. With sample set the board starts
// from the demo document instead of an empty one.
func (s *Service) Create(ctx context.Context, ownerID, name string, sample bool) (*store.Board, error) {
	doc := document.New()
	if sample {
		doc = document.NewSampleDocument()
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal initial document: %w", err)
	}

	b, err := s.store.CreateBoard(ctx, store.Board{
		ID:      typeid.NewBoardID(),
		OwnerID: ownerID,
		Name:    name,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	return b, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (*store.Board, error) {
	return s.store.GetBoard(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, ownerID string) ([]store.Board, error) {
	return s.store.ListBoards(ctx, ownerID)
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if s.busy(id) {
		return ErrBoardBusy
	}
	return s.store.DeleteBoard(ctx, ownerID, id)
}

// Document returns the stored document.
func (s *Service) Document(ctx context.Context, ownerID, id string) (json.RawMessage, error) {
	return s.store.LoadDocument(ctx, ownerID, id)
}

// ReplaceDocument validates data structurally and stores its canonical
// encoding. Geometry beyond well-formedness is not checked.
func (s *Service) ReplaceDocument(ctx context.Context, ownerID, id string, data []byte) (*store.Board, error) {
	if s.busy(id) {
		return nil, ErrBoardBusy
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, err
	}
	if s.maxLayers > 0 && doc.Len() > s.maxLayers {
		return nil, fmt.Errorf("%w: %d layers, limit %d", ErrTooLarge, doc.Len(), s.maxLayers)
	}

	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	if err := s.store.SaveDocument(ctx, ownerID, id, canonical); err != nil {
		return nil, err
	}
	return s.store.GetBoard(ctx, ownerID, id)
}

func (s *Service) busy(id string) bool {
	return s.sessions != nil && s.sessions.Active(id)
}
