package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrBoardBusy is returned by Register when the board already has a client.
var ErrBoardBusy = errors.New("board has an active session")

// Hub tracks the one connected client of each board.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client // boardID -> client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.session.BoardID]; ok {
		return ErrBoardBusy
	}
	h.clients[c.session.BoardID] = c
	slog.Info("session started", "board", c.session.BoardID, "user", c.session.UserID, "session", c.session.ID)
	return nil
}

// Unregister removes c if it is still the board's client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.clients[c.session.BoardID]; ok && cur == c {
		delete(h.clients, c.session.BoardID)
		slog.Info("session ended", "board", c.session.BoardID, "session", c.session.ID)
	}
}

// Active reports whether boardID is being edited.
func (h *Hub) Active(boardID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[boardID]
	return ok
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop saves every open session. Connections are left to close with the
// server.
func (h *Hub) Stop(ctx context.Context) error {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var errs []error
	for _, c := range clients {
		if err := c.session.Flush(ctx); err != nil {
			slog.Error("flush session", "board", c.session.BoardID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
