package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatsync-server/internal/chat"
	"github.com/vovakirdan/chatsync-server/internal/config"
	"github.com/vovakirdan/chatsync-server/internal/session"
	"github.com/vovakirdan/chatsync-server/internal/store/sqlite"
)

func startTestServer(t *testing.T) (*httptest.Server, *session.Service) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.Nop()
	chatSvc := chat.NewService(st, &logger)
	sessions := newTestSessionService()

	cfg := config.Default()
	cfg.Addr = ":0"
	server := NewServer(chatSvc, sessions, cfg, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, sessions
}

func roomURL(ts *httptest.Server, token string) string {
	q := url.Values{}
	q.Set("service", "42")
	q.Set("creator", "A")
	q.Set("owner", "B")
	q.Set("token", token)
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws/rooms?" + q.Encode()
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestRoomFeed_RequiresSessionToken(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/ws/rooms?service=42&creator=A&owner=B")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestRoomFeed_RejectsInvalidIdentity(t *testing.T) {
	ts, sessions := startTestServer(t)

	sess, err := sessions.EnsureAnonymous(context.Background())
	if err != nil {
		t.Fatalf("session acquisition failed: %v", err)
	}

	// Missing owner id: rejected before any upgrade.
	resp, err := ts.Client().Get(ts.URL + "/ws/rooms?service=42&creator=A&token=" + sess.Token)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRoomFeed_SubmitObservedThroughWindow(t *testing.T) {
	ts, sessions := startTestServer(t)

	sess, err := sessions.EnsureAnonymous(context.Background())
	if err != nil {
		t.Fatalf("session acquisition failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, roomURL(ts, sess.Token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// Initial window is empty for a fresh room.
	var initial Outbound
	if err := wsjson.Read(ctx, conn, &initial); err != nil {
		t.Fatalf("read initial window: %v", err)
	}
	if initial.Type != OutboundTypeWindow || len(initial.Messages) != 0 {
		t.Fatalf("unexpected initial frame %+v", initial)
	}

	if err := wsjson.Write(ctx, conn, Inbound{Msg: "hello"}); err != nil {
		t.Fatalf("write submission: %v", err)
	}

	for {
		var frame Outbound
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("read window: %v", err)
		}
		if frame.Type != OutboundTypeWindow || len(frame.Messages) == 0 {
			continue
		}
		last := frame.Messages[len(frame.Messages)-1]
		if last.Msg != "hello" {
			t.Fatalf("expected submitted message last, got %+v", last)
		}
		if last.UID != sess.UID {
			t.Fatalf("expected author %q, got %q", sess.UID, last.UID)
		}
		return
	}
}

func TestRoomFeed_EmptySubmissionKeepsConnection(t *testing.T) {
	ts, sessions := startTestServer(t)

	sess, err := sessions.EnsureAnonymous(context.Background())
	if err != nil {
		t.Fatalf("session acquisition failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, roomURL(ts, sess.Token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	var initial Outbound
	if err := wsjson.Read(ctx, conn, &initial); err != nil {
		t.Fatalf("read initial window: %v", err)
	}

	if err := wsjson.Write(ctx, conn, Inbound{Msg: ""}); err != nil {
		t.Fatalf("write empty submission: %v", err)
	}

	var frame Outbound
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if frame.Type != OutboundTypeError || frame.Error == nil || frame.Error.Code != chat.ErrCodeEmptyMessage {
		t.Fatalf("expected empty_message error frame, got %+v", frame)
	}

	// Connection survives: a real submission still goes through.
	if err := wsjson.Write(ctx, conn, Inbound{Msg: "still here"}); err != nil {
		t.Fatalf("write after rejection: %v", err)
	}
	for {
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("read window after rejection: %v", err)
		}
		if frame.Type == OutboundTypeWindow && len(frame.Messages) == 1 {
			if frame.Messages[0].Msg != "still here" {
				t.Fatalf("unexpected message %+v", frame.Messages[0])
			}
			return
		}
	}
}
