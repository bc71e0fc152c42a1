package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatsync-server/internal/chat"
)

// RoomHandlers bridges a room's live feed and submissions over WebSocket.
// It is a plain http.Handler: the upgrade hijacks the connection and needs
// the raw ResponseWriter.
type RoomHandlers struct {
	chat   *chat.Service
	log    *zerolog.Logger
	window int
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(chatSvc *chat.Service, window int, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{chat: chatSvc, log: logger, window: window}
}

// ServeHTTP serves a two-party conversation: it resolves the room from the
// three role identifiers, bootstraps the room record, then streams whole
// feed windows to the client while accepting message submissions.
// GET /ws/rooms?service=…&creator=…&owner=…&token=…
func (h *RoomHandlers) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	q := r.URL.Query()
	serviceID := q.Get("service")
	creatorID := q.Get("creator")
	ownerID := q.Get("owner")

	key, err := chat.ResolveRoomKey(serviceID, creatorID, ownerID)
	if err != nil {
		h.log.Debug().Err(err).Msg("invalid conversation identity")
		writeError(w, stdhttp.StatusBadRequest, err.Error())
		return
	}

	// Room bootstrap failure is fatal to the conversation; reject before
	// the upgrade so the client sees a durable error state.
	if err := h.chat.EnsureRoom(r.Context(), key, creatorID, ownerID); err != nil {
		h.log.Error().Err(err).Str("room", key).Msg("room bootstrap failed")
		writeError(w, stdhttp.StatusBadGateway, chat.CodeOf(err))
		return
	}

	uid := UIDFromContext(r.Context())

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	feed, err := h.chat.SubscribeFeed(key, h.window)
	if err != nil {
		h.log.Error().Err(err).Str("room", key).Msg("feed subscribe failed")
		conn.Close(websocket.StatusInternalError, chat.CodeOf(err))
		return
	}
	defer feed.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, key, uid)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, feed)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	feed.Close()
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("room", key).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readLoop consumes submission frames. Precondition violations and write
// failures are reported to the client without dropping the connection, so
// the typed text is never lost to a transient failure.
func (h *RoomHandlers) readLoop(ctx context.Context, conn *websocket.Conn, key, uid string) error {
	for {
		var inbound Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		err := h.chat.Submit(ctx, key, uid, inbound.Msg)
		if err == nil {
			continue
		}

		code := chat.CodeOf(err)
		switch code {
		case chat.ErrCodeEmptyMessage, chat.ErrCodeUnauthenticated, chat.ErrCodeSubmitFailed:
			h.log.Debug().Err(err).Str("room", key).Msg("submission rejected")
			if writeErr := wsjson.Write(ctx, conn, Outbound{
				Type:  OutboundTypeError,
				Error: &WireError{Code: code, Msg: err.Error()},
			}); writeErr != nil {
				return writeErr
			}
		default:
			return err
		}
	}
}

// writeLoop pushes whole-window snapshots as they are delivered.
func (h *RoomHandlers) writeLoop(ctx context.Context, conn *websocket.Conn, feed *chat.Feed) error {
	for {
		select {
		case window, ok := <-feed.Updates():
			if !ok {
				if err := feed.Err(); err != nil {
					_ = wsjson.Write(ctx, conn, Outbound{
						Type:  OutboundTypeError,
						Error: &WireError{Code: chat.CodeOf(err), Msg: err.Error()},
					})
					return err
				}
				return nil
			}
			frame := Outbound{Type: OutboundTypeWindow, Messages: make([]WireMessage, 0, len(window))}
			for _, msg := range window {
				frame.Messages = append(frame.Messages, WireMessage{
					Seq:       msg.Seq,
					Msg:       msg.Text,
					CreatedAt: msg.CreatedAt,
					UID:       msg.AuthorID,
				})
			}
			if err := wsjson.Write(ctx, conn, frame); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
