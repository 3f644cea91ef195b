package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Token issues a bearer token. A request that already carries a valid token
// gets a fresh one for the same user; otherwise a new user id is minted.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var userID string
	if bearer, ok := bearerToken(r); ok {
		id, err := h.service.ValidateToken(bearer)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		userID = id
	}

	result, err := h.service.Issue(userID)
	if err != nil {
		slog.Error("issue token failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	status := http.StatusOK
	if userID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
