package live

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/linxiaoyu/mindhaven/backend/internal/adaptation"
	"github.com/linxiaoyu/mindhaven/backend/internal/identity"
	"github.com/linxiaoyu/mindhaven/backend/internal/middleware"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/counselor"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
	"github.com/linxiaoyu/mindhaven/backend/internal/sensing"
	conversationservice "github.com/linxiaoyu/mindhaven/backend/internal/service/conversation"
	sessionservice "github.com/linxiaoyu/mindhaven/backend/internal/service/session"
	"github.com/linxiaoyu/mindhaven/backend/internal/store"
)

type brokenChannel struct{}

func (brokenChannel) Source() emotion.Source { return emotion.SourceText }

func (brokenChannel) Analyze(context.Context, sensing.Input) (emotion.Observation, bool, error) {
	return emotion.Observation{}, false, errors.New("sensor offline")
}

func setupServer(t *testing.T, text sensing.Channel) (*httptest.Server, *conversationservice.Service, string) {
	t.Helper()

	gateway := store.NewMemoryStore()
	sessions := sessionservice.NewService(gateway)
	logSvc := conversationservice.NewService(gateway)
	handler := New(nil, logSvc, adaptation.NewSelector(nil), text, counselor.NewMemoryStore(counselor.Seed()))

	resolver := identity.NewStaticResolver(map[string]string{
		"alice-token": "alice",
		"bob-token":   "bob",
	})
	r := chi.NewRouter()
	r.Use(middleware.RequireIdentity(resolver))
	handler.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	opened, err := sessions.Open(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	return srv, logSvc, opened.ID
}

func liveURL(srv *httptest.Server, sessionID, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/live/" + sessionID + "?token=" + token
}

func dialLive(t *testing.T, srv *httptest.Server, sessionID, token string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(liveURL(srv, sessionID, token), nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) outgoingFrame {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame outgoingFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame err: %v", err)
	}
	return frame
}

func writeFrame(t *testing.T, conn *websocket.Conn, frame map[string]any) {
	t.Helper()

	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("write frame err: %v", err)
	}
}

func TestLiveTurnFusesBufferedObservations(t *testing.T) {
	srv, logSvc, sessionID := setupServer(t, sensing.NewTextChannel())
	conn := dialLive(t, srv, sessionID, "alice-token")

	if frame := readFrame(t, conn); frame.Type != "connected" {
		t.Fatalf("expected connected frame, got %s", frame.Type)
	}

	writeFrame(t, conn, map[string]any{
		"type":   "observation",
		"source": "facial",
		"values": map[string]float64{"sad": 0.7, "neutral": 0.2},
	})
	if frame := readFrame(t, conn); frame.Type != "observation_buffered" {
		t.Fatalf("expected observation_buffered frame, got %s", frame.Type)
	}

	// "hello there" carries no keyword signal, so the facial observation
	// alone decides the turn.
	writeFrame(t, conn, map[string]any{"type": "turn", "content": "hello there"})

	if frame := readFrame(t, conn); frame.Type != "user_message" {
		t.Fatalf("expected user_message frame, got %s", frame.Type)
	}

	emotionFrame := readFrame(t, conn)
	if emotionFrame.Type != "emotion" {
		t.Fatalf("expected emotion frame, got %s", emotionFrame.Type)
	}
	judgment, ok := emotionFrame.Data.(map[string]any)
	if !ok || judgment["primaryEmotion"] != "sad" {
		t.Fatalf("expected sad judgment, got %+v", emotionFrame.Data)
	}

	replyFrame := readFrame(t, conn)
	if replyFrame.Type != "reply" {
		t.Fatalf("expected reply frame, got %s", replyFrame.Type)
	}
	reply, ok := replyFrame.Data.(map[string]any)
	if !ok || reply["strategy"] != "supportive" {
		t.Fatalf("expected supportive strategy, got %+v", replyFrame.Data)
	}

	messages, err := logSvc.Read(context.Background(), sessionID, "alice")
	if err != nil {
		t.Fatalf("Read err: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected user and assistant turns recorded, got %d", len(messages))
	}
	if messages[0].DetectedEmotion != emotion.Sad {
		t.Fatalf("user turn should be tagged sad, got %s", messages[0].DetectedEmotion)
	}
}

func TestLiveUnknownFrameTypeReportsError(t *testing.T) {
	srv, _, sessionID := setupServer(t, sensing.NewTextChannel())
	conn := dialLive(t, srv, sessionID, "alice-token")

	readFrame(t, conn) // connected

	writeFrame(t, conn, map[string]any{"type": "mystery"})
	if frame := readFrame(t, conn); frame.Type != "error" {
		t.Fatalf("expected error frame, got %s", frame.Type)
	}
}

func TestLiveSensingFailureAbortsTurn(t *testing.T) {
	srv, logSvc, sessionID := setupServer(t, brokenChannel{})
	conn := dialLive(t, srv, sessionID, "alice-token")

	readFrame(t, conn) // connected

	writeFrame(t, conn, map[string]any{"type": "turn", "content": "hello"})
	if frame := readFrame(t, conn); frame.Type != "error" {
		t.Fatalf("expected error frame, got %s", frame.Type)
	}

	messages, err := logSvc.Read(context.Background(), sessionID, "alice")
	if err != nil {
		t.Fatalf("Read err: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("no turn may be recorded when sensing fails, got %d", len(messages))
	}
}

func TestLiveForeignSessionRejectedBeforeUpgrade(t *testing.T) {
	srv, _, sessionID := setupServer(t, sensing.NewTextChannel())

	_, resp, err := websocket.DefaultDialer.Dial(liveURL(srv, sessionID, "bob-token"), nil)
	if err == nil {
		t.Fatal("expected handshake rejection for foreign session")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake response, got %+v", resp)
	}
}
