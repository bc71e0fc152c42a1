package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatsync-server/internal/session"
)

type contextKey string

const ctxKeyUID contextKey = "uid"

// UIDFromContext returns the session uid stored by Authenticate, or "".
func UIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(ctxKeyUID).(string)
	return uid
}

// Authenticate validates session tokens and stores the uid in the request
// context. The token comes from the Authorization header, or from the
// "token" query parameter for WebSocket clients that cannot set headers.
// It wraps a plain http.Handler: the WebSocket upgrade hijacks the raw
// ResponseWriter and must stay outside gin's buffered writer.
func Authenticate(sessions *session.Service, logger *zerolog.Logger, next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			logger.Debug().Msg("missing session token")
			writeError(w, stdhttp.StatusUnauthorized, "missing session token")
			return
		}

		claims, err := sessions.ValidateToken(token)
		if err != nil {
			logger.Debug().Err(err).Msg("invalid session token")
			writeError(w, stdhttp.StatusUnauthorized, "invalid session token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUID, claims.UID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *stdhttp.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func writeError(w stdhttp.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
