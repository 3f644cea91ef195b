package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/whiteboard/internal/typeid"
)

func TestTokenRoundTrip(t *testing.T) {
	s := NewService("secret", time.Hour)

	res, err := s.Issue("")
	require.NoError(t, err)
	require.NoError(t, typeid.Validate(res.UserID, typeid.PrefixUser))

	userID, err := s.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.UserID, userID)

	again, err := s.Issue(userID)
	require.NoError(t, err)
	assert.Equal(t, userID, again.UserID)

	_, err = s.Issue("board_01h455vb4pex5vsknk084sn02q")
	assert.Error(t, err)
}

func TestValidateTokenRejects(t *testing.T) {
	s := NewService("secret", time.Hour)
	res, err := s.Issue("")
	require.NoError(t, err)

	other := NewService("other", time.Hour)
	_, err = other.ValidateToken(res.Token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	later := NewService("secret", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.ValidateToken(res.Token)
	assert.True(t, errors.Is(err, ErrInvalidToken), "expired")

	_, err = s.ValidateToken("not-a-token")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestMiddleware(t *testing.T) {
	s := NewService("secret", time.Hour)
	res, err := s.Issue("")
	require.NoError(t, err)

	var seen string
	h := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + res.Token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/boards", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
	assert.Equal(t, res.UserID, seen)
}

func TestTokenHandler(t *testing.T) {
	s := NewService("secret", time.Hour)
	h := NewHandler(s)

	rec := httptest.NewRecorder()
	h.Token(rec, httptest.NewRequest(http.MethodPost, "/auth/token", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var first TokenResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))
	assert.NotEmpty(t, first.Token)

	req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
	req.Header.Set("Authorization", "Bearer "+first.Token)
	rec = httptest.NewRecorder()
	h.Token(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var refreshed TokenResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&refreshed))
	assert.Equal(t, first.UserID, refreshed.UserID)

	req = httptest.NewRequest(http.MethodPost, "/auth/token", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	h.Token(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
