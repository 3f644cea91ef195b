// Package persist writes an engine's document back to storage after edits
// settle.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/inamate/whiteboard/internal/document"
)

const (
	DefaultDelay = time.Second
	saveTimeout  = 10 * time.Second
)

// Gateway receives serialized documents.
type Gateway interface {
	Save(ctx context.Context, boardID string, data []byte) error
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, boardID string, data []byte) error

func (f GatewayFunc) Save(ctx context.Context, boardID string, data []byte) error {
	return f(ctx, boardID, data)
}

// Saver coalesces change notifications into trailing-edge saves. A save
// runs once no change has arrived for the configured delay. Payloads equal
// to the last stored one are skipped. Failed saves are logged and left for
// the next change or Flush; the in-memory document is never touched.
type Saver struct {
	gw      Gateway
	boardID string
	delay   time.Duration
	log     *slog.Logger

	mu      sync.Mutex
	pending *document.Document
	timer   *time.Timer
	closed  bool

	saveMu sync.Mutex
	last   [blake2b.Size256]byte
	saved  bool
}

func NewSaver(gw Gateway, boardID string, delay time.Duration) *Saver {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Saver{
		gw:      gw,
		boardID: boardID,
		delay:   delay,
		log:     slog.With("board", boardID),
	}
}

// Prime records data as already stored, so an unchanged document is not
// written back.
func (s *Saver) Prime(data []byte) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	s.last = blake2b.Sum256(data)
	s.saved = true
}

// Notify queues doc for saving. It has the shape of engine.ChangeFunc.
func (s *Saver) Notify(doc *document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.pending = doc
	if s.timer == nil {
		s.timer = time.AfterFunc(s.delay, s.fire)
		return
	}
	s.timer.Reset(s.delay)
}

// Flush saves any queued document now.
func (s *Saver) Flush(ctx context.Context) error {
	doc := s.take()
	if doc == nil {
		return nil
	}
	return s.save(ctx, doc)
}

// Close stops the timer and drops any queued document. Call Flush first to
// keep it.
func (s *Saver) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *Saver) fire() {
	doc := s.take()
	if doc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.save(ctx, doc); err != nil {
		s.log.Error("save board failed", "error", err)
	}
}

func (s *Saver) take() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.pending
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
	}
	return doc
}

func (s *Saver) save(ctx context.Context, doc *document.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	sum := blake2b.Sum256(data)
	if s.saved && sum == s.last {
		s.log.Debug("skip unchanged board")
		return nil
	}
	if err := s.gw.Save(ctx, s.boardID, data); err != nil {
		return fmt.Errorf("save board %s: %w", s.boardID, err)
	}
	s.last = sum
	s.saved = true
	s.log.Debug("board saved", "bytes", len(data))
	return nil
}
