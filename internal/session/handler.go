package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"github.com/inamate/whiteboard/internal/auth"
	"github.com/inamate/whiteboard/internal/persist"
	"github.com/inamate/whiteboard/internal/store"
)

// Handler upgrades /ws/boards/{boardId} requests into editing sessions.
type Handler struct {
	hub     *Hub
	auth    *auth.Service
	store   store.Store
	opts    Options
	origins []string
}

// NewHandler builds a handler. origins are the allowed browser origins with
// or without a scheme; an empty list allows same-origin requests only.
func NewHandler(hub *Hub, authSvc *auth.Service, st store.Store, opts Options, origins []string) *Handler {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		patterns = append(patterns, o)
	}
	return &Handler{hub: hub, auth: authSvc, store: st, opts: opts, origins: patterns}
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["boardId"]

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	cd, err := codecFor(r.URL.Query().Get("encoding"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := h.store.GetBoard(r.Context(), userID, boardID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "board not found", http.StatusNotFound)
			return
		}
		slog.Error("get board", "board", boardID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	data, err := h.store.LoadDocument(r.Context(), userID, boardID)
	if err != nil {
		slog.Error("load document", "board", boardID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if h.hub.Active(boardID) {
		http.Error(w, ErrBoardBusy.Error(), http.StatusConflict)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	gw := persist.GatewayFunc(func(ctx context.Context, boardID string, data []byte) error {
		return h.store.SaveDocument(ctx, userID, boardID, data)
	})
	s := New(boardID, userID, data, gw, h.opts)
	client := NewClient(h.hub, conn, cd, s)

	if err := h.hub.Register(client); err != nil {
		s.Close(context.Background())
		conn.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}

	doc, err := s.Engine().Serialize()
	if err != nil {
		slog.Error("serialize document", "board", boardID, "error", err)
	}
	client.Send(TypeWelcome, WelcomePayload{
		SessionID: s.ID,
		ClientID:  client.ClientID,
		BoardID:   boardID,
		Document:  doc,
	})
	if err := s.LoadError(); err != nil {
		client.Send(TypeError, ErrorPayload{Message: "stored document was rejected: " + err.Error()})
	}
	client.Send(TypeFrame, s.Frame())

	ctx := r.Context()
	go client.WritePump(ctx)
	go client.ReadPump(ctx)
	client.Run()
}
