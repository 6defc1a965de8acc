package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInsertAssignsIDAndTimestamp(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Insert(ctx, Messages, Record{"ownerId": "u1", "sessionId": "s1", "content": "hi"})
	if err != nil {
		t.Fatalf("Insert err: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	rec, err := s.FindByID(ctx, Messages, id, "u1")
	if err != nil {
		t.Fatalf("FindByID err: %v", err)
	}
	if ts, ok := rec["createdAt"].(time.Time); !ok || ts.IsZero() {
		t.Fatalf("expected stamped createdAt, got %v", rec["createdAt"])
	}
}

func TestInsertRequiresOwner(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Insert(context.Background(), Sessions, Record{"title": "no owner"}); !errors.Is(err, ErrOwnerRequired) {
		t.Fatalf("expected ErrOwnerRequired, got %v", err)
	}
}

func TestFindByIDConflatesUnowned(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Insert(ctx, Sessions, Record{"ownerId": "u1"})
	if err != nil {
		t.Fatalf("Insert err: %v", err)
	}

	if _, err := s.FindByID(ctx, Sessions, id, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if _, err := s.FindByID(ctx, Sessions, "missing", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
}

func TestTimestampsAreMonotonic(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var last time.Time
	for i := 0; i < 50; i++ {
		id, err := s.Insert(ctx, Messages, Record{"ownerId": "u1", "sessionId": "s1"})
		if err != nil {
			t.Fatalf("Insert err: %v", err)
		}
		rec, err := s.FindByID(ctx, Messages, id, "u1")
		if err != nil {
			t.Fatalf("FindByID err: %v", err)
		}
		ts := rec["createdAt"].(time.Time)
		if ts.Before(last) {
			t.Fatalf("timestamp moved backwards: %v before %v", ts, last)
		}
		last = ts
	}
}

func TestQueryBySessionKeepsInsertionOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	want := []string{"one", "two", "three", "four"}
	for _, content := range want {
		if _, err := s.Insert(ctx, Messages, Record{"ownerId": "u1", "sessionId": "s1", "content": content}); err != nil {
			t.Fatalf("Insert err: %v", err)
		}
	}
	// another session's rows must not leak in
	if _, err := s.Insert(ctx, Messages, Record{"ownerId": "u1", "sessionId": "s2", "content": "other"}); err != nil {
		t.Fatalf("Insert err: %v", err)
	}

	records, err := s.QueryBySession(ctx, Messages, "s1", "u1", "createdAt")
	if err != nil {
		t.Fatalf("QueryBySession err: %v", err)
	}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for i, rec := range records {
		if rec["content"] != want[i] {
			t.Fatalf("position %d: expected %q, got %v", i, want[i], rec["content"])
		}
	}
}

func TestQueryByOwnerDescending(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, _ := s.Insert(ctx, Sessions, Record{"ownerId": "u1"})
	second, _ := s.Insert(ctx, Sessions, Record{"ownerId": "u1"})
	if _, err := s.Insert(ctx, Sessions, Record{"ownerId": "u2"}); err != nil {
		t.Fatalf("Insert err: %v", err)
	}

	records, err := s.QueryByOwner(ctx, Sessions, "u1", "startedAt", true)
	if err != nil {
		t.Fatalf("QueryByOwner err: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(records))
	}
	if records[0]["id"] != second || records[1]["id"] != first {
		t.Fatalf("expected newest first, got %v then %v", records[0]["id"], records[1]["id"])
	}
}

func TestUpdateByIDKeepsIdentityImmutable(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, _ := s.Insert(ctx, Sessions, Record{"ownerId": "u1", "summary": ""})
	err := s.UpdateByID(ctx, Sessions, id, "u1", Record{"summary": "done", "ownerId": "intruder"})
	if err != nil {
		t.Fatalf("UpdateByID err: %v", err)
	}

	rec, err := s.FindByID(ctx, Sessions, id, "u1")
	if err != nil {
		t.Fatalf("FindByID err: %v", err)
	}
	if rec["summary"] != "done" {
		t.Fatalf("patch not applied: %v", rec["summary"])
	}
	if rec["ownerId"] != "u1" {
		t.Fatalf("ownerId must be immutable, got %v", rec["ownerId"])
	}

	if err := s.UpdateByID(ctx, Sessions, id, "u2", Record{"summary": "hijack"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
}

func TestUpdateByIDIfAbsentWinsOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, _ := s.Insert(ctx, Sessions, Record{"ownerId": "u1"})

	first := Record{"endedAt": time.Now().UTC(), "summary": "winner"}
	if err := s.UpdateByIDIfAbsent(ctx, Sessions, id, "u1", "endedAt", first); err != nil {
		t.Fatalf("first guarded update err: %v", err)
	}

	second := Record{"endedAt": time.Now().UTC(), "summary": "loser"}
	if err := s.UpdateByIDIfAbsent(ctx, Sessions, id, "u1", "endedAt", second); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on second guarded update, got %v", err)
	}

	rec, err := s.FindByID(ctx, Sessions, id, "u1")
	if err != nil {
		t.Fatalf("FindByID err: %v", err)
	}
	if rec["summary"] != "winner" {
		t.Fatalf("losing update must not apply, got %v", rec["summary"])
	}
}

func TestUpdateByIDIfAbsentOwnerScoped(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, _ := s.Insert(ctx, Sessions, Record{"ownerId": "u1"})

	if err := s.UpdateByIDIfAbsent(ctx, Sessions, id, "u2", "endedAt", Record{"endedAt": time.Now()}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if err := s.UpdateByIDIfAbsent(ctx, Sessions, "missing", "u1", "endedAt", Record{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
}

func TestDeleteByIDOwnerScoped(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, _ := s.Insert(ctx, SavedRecommendations, Record{"ownerId": "u1", "content": "breathing"})

	if err := s.DeleteByID(ctx, SavedRecommendations, id, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if err := s.DeleteByID(ctx, SavedRecommendations, id, "u1"); err != nil {
		t.Fatalf("DeleteByID err: %v", err)
	}
	if _, err := s.FindByID(ctx, SavedRecommendations, id, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected record gone, got %v", err)
	}
}
