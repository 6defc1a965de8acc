package stream

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linxiaoyu/mindhaven/backend/internal/adaptation"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/counselor"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/therapy"
	"github.com/linxiaoyu/mindhaven/backend/internal/sensing"
	conversationservice "github.com/linxiaoyu/mindhaven/backend/internal/service/conversation"
	sessionservice "github.com/linxiaoyu/mindhaven/backend/internal/service/session"
	"github.com/linxiaoyu/mindhaven/backend/internal/store"
)

func setup(t *testing.T) (*Handler, *conversationservice.Service, string) {
	t.Helper()

	gateway := store.NewMemoryStore()
	sessions := sessionservice.NewService(gateway)
	logSvc := conversationservice.NewService(gateway)
	profiles := counselor.NewMemoryStore(counselor.Seed())
	handler := New(nil, logSvc, adaptation.NewSelector(nil), []sensing.Channel{sensing.NewTextChannel()}, profiles)

	opened, err := sessions.Open(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	return handler, logSvc, opened.ID
}

func decodeEvents(t *testing.T, body string) []StreamResponse {
	t.Helper()

	var events []StreamResponse
	for _, chunk := range strings.Split(body, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		payload := strings.TrimPrefix(chunk, "data: ")
		var event StreamResponse
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			t.Fatalf("bad sse chunk %q: %v", chunk, err)
		}
		events = append(events, event)
	}
	return events
}

func TestStreamTurnCannedReplySequence(t *testing.T) {
	handler, logSvc, sessionID := setup(t)
	resp := httptest.NewRecorder()

	err := handler.HandleStreamRequest(context.Background(), resp, sessionID, "u1", "mira", "I feel anxious and worried")
	if err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}

	events := decodeEvents(t, resp.Body.String())
	want := []string{"start", "message", "emotion", "end"}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i, event := range events {
		if event.Event != want[i] {
			t.Fatalf("position %d: expected %s event, got %s", i, want[i], event.Event)
		}
	}
	if !events[3].Finished {
		t.Fatal("end event must be marked finished")
	}
	if !strings.Contains(events[2].Content, `"anxious"`) || !strings.Contains(events[2].Content, `"grounding"`) {
		t.Fatalf("emotion event should carry the anxious judgment and strategy: %s", events[2].Content)
	}

	messages, err := logSvc.Read(context.Background(), sessionID, "u1")
	if err != nil {
		t.Fatalf("Read err: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected user and assistant turns recorded, got %d", len(messages))
	}
	if messages[0].Role != therapy.RoleUser || messages[1].Role != therapy.RoleAssistant {
		t.Fatalf("unexpected turn roles: %s, %s", messages[0].Role, messages[1].Role)
	}
	if messages[0].DetectedEmotion != emotion.Anxious {
		t.Fatalf("user turn should be tagged anxious, got %s", messages[0].DetectedEmotion)
	}
	grounding := adaptation.NewSelector(nil).Select(emotion.Anxious)
	if messages[1].Content != grounding.Reply {
		t.Fatalf("assistant turn should be the grounding reply, got %q", messages[1].Content)
	}
	if events[1].Content != grounding.Reply {
		t.Fatalf("message event should stream the same reply, got %q", events[1].Content)
	}
}

func TestStreamUnknownCounselorFallsBack(t *testing.T) {
	handler, _, sessionID := setup(t)
	resp := httptest.NewRecorder()

	if err := handler.HandleStreamRequest(context.Background(), resp, sessionID, "u1", "nobody", "hello there"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}

	events := decodeEvents(t, resp.Body.String())
	if len(events) == 0 || events[0].Event != "start" {
		t.Fatalf("expected start event first, got %+v", events)
	}
	// first seeded profile answers when the requested one is unknown
	if !strings.Contains(events[0].Content, "Mira") {
		t.Fatalf("expected fallback profile in start event, got %q", events[0].Content)
	}
}

func TestStreamForeignSessionSendsErrorEvent(t *testing.T) {
	handler, _, sessionID := setup(t)
	resp := httptest.NewRecorder()

	if err := handler.HandleStreamRequest(context.Background(), resp, sessionID, "u2", "", "hello"); err == nil {
		t.Fatal("expected error for foreign session")
	}

	events := decodeEvents(t, resp.Body.String())
	if len(events) != 1 || events[0].Event != "error" {
		t.Fatalf("expected a single error event, got %+v", events)
	}
}
