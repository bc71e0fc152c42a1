package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatsync-server/internal/session"
)

// SessionHandlers provides HTTP handlers for session issuance.
type SessionHandlers struct {
	sessions *session.Service
	log      *zerolog.Logger
}

// NewSessionHandlers creates a new session handlers instance.
func NewSessionHandlers(sessions *session.Service, logger *zerolog.Logger) *SessionHandlers {
	return &SessionHandlers{sessions: sessions, log: logger}
}

// SessionResponse represents the session issuance response body.
type SessionResponse struct {
	Token string `json:"token"`
	UID   string `json:"uid"`
}

// Create issues (or returns) the anonymous session.
// POST /api/session
func (h *SessionHandlers) Create(c *gin.Context) {
	sess, err := h.sessions.EnsureAnonymous(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to establish anonymous session")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, SessionResponse{Token: sess.Token, UID: sess.UID})
}
