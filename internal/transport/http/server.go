package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatsync-server/internal/chat"
	"github.com/vovakirdan/chatsync-server/internal/config"
	"github.com/vovakirdan/chatsync-server/internal/session"
)

// NewServer builds the HTTP server with all routes. REST routes go through
// gin; the WebSocket feed mounts on the outer mux because the upgrade must
// hijack the raw ResponseWriter, which gin's buffered writer refuses once
// its handler chain runs.
func NewServer(chatSvc *chat.Service, sessions *session.Service, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	sessionHandlers := NewSessionHandlers(sessions, logger)
	router.POST("/api/session", sessionHandlers.Create)

	roomHandlers := NewRoomHandlers(chatSvc, cfg.FeedWindow, logger)

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws/rooms", Authenticate(sessions, logger, roomHandlers))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	_, _ = fmt.Fprint(c.Writer, "ok")
}
