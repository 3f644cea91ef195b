// Package memory is an in-process board store for development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/inamate/whiteboard/internal/store"
)

type entry struct {
	board store.Board
	doc   []byte
}

type Store struct {
	mu     sync.RWMutex
	boards map[string]*entry
	now    func() time.Time
}

func New() *Store {
	return &Store{boards: make(map[string]*entry), now: time.Now}
}

func (s *Store) CreateBoard(ctx context.Context, b store.Board, doc []byte) (*store.Board, error) {
	if b.ID == "" || b.OwnerID == "" {
		return nil, fmt.Errorf("create board: id and owner are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.boards[b.ID]; exists {
		return nil, fmt.Errorf("create board %s: already exists", b.ID)
	}
	now := s.now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	b.Revision = store.NewRevision()
	s.boards[b.ID] = &entry{board: b, doc: slices.Clone(doc)}

	out := b
	return &out, nil
}

func (s *Store) GetBoard(ctx context.Context, ownerID, id string) (*store.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(ownerID, id)
	if err != nil {
		return nil, err
	}
	out := e.board
	return &out, nil
}

func (s *Store) ListBoards(ctx context.Context, ownerID string) ([]store.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	boards := []store.Board{}
	for _, e := range s.boards {
		if e.board.OwnerID == ownerID {
			boards = append(boards, e.board)
		}
	}
	sort.Slice(boards, func(i, j int) bool {
		return boards[i].UpdatedAt.After(boards[j].UpdatedAt)
	})
	return boards, nil
}

func (s *Store) DeleteBoard(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(ownerID, id); err != nil {
		return err
	}
	delete(s.boards, id)
	return nil
}

func (s *Store) LoadDocument(ctx context.Context, ownerID, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(ownerID, id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(e.doc), nil
}

func (s *Store) SaveDocument(ctx context.Context, ownerID, id string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(ownerID, id)
	if err != nil {
		return err
	}
	e.doc = slices.Clone(doc)
	e.board.Revision = store.NewRevision()
	e.board.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) lookup(ownerID, id string) (*entry, error) {
	e, ok := s.boards[id]
	if !ok || e.board.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	return e, nil
}
