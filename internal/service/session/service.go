package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linxiaoyu/mindhaven/backend/internal/identity"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/therapy"
	"github.com/linxiaoyu/mindhaven/backend/internal/store"
)

// ErrSessionClosed rejects lifecycle mutations on an already closed session.
// A second close is an error, never a silent no-op.
var ErrSessionClosed = errors.New("session already closed")

// Service owns the session state machine: sessions are created active and
// transition to closed exactly once.
type Service struct {
	gateway store.Gateway
}

// NewService binds the lifecycle manager to a persistence gateway.
func NewService(gateway store.Gateway) *Service {
	return &Service{gateway: gateway}
}

// Open creates an active session for the authenticated owner.
func (s *Service) Open(ctx context.Context, ownerID string) (therapy.Session, error) {
	if ownerID == "" {
		return therapy.Session{}, identity.ErrUnauthenticated
	}

	session := therapy.Session{OwnerID: ownerID}

	// startedAt is assigned by the gateway at insert.
	id, err := s.gateway.Insert(ctx, store.Sessions, session.ToRecord())
	if err != nil {
		return therapy.Session{}, fmt.Errorf("persist session: %w", err)
	}
	return s.Get(ctx, id, ownerID)
}

// Get returns a session visible to the actor. Absent and not-owned are the
// same answer.
func (s *Service) Get(ctx context.Context, sessionID, actorID string) (therapy.Session, error) {
	if actorID == "" {
		return therapy.Session{}, identity.ErrUnauthenticated
	}

	rec, err := s.gateway.FindByID(ctx, store.Sessions, sessionID, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return therapy.Session{}, err
		}
		return therapy.Session{}, fmt.Errorf("load session: %w", err)
	}
	return therapy.SessionFromRecord(rec), nil
}

// Close ends an active session, storing the closing summary and overall mood.
// The transition is guarded at the gateway on endedAt, so of two concurrent
// closes exactly one wins.
func (s *Service) Close(ctx context.Context, sessionID, actorID, summary, overallMood string) (therapy.Session, error) {
	if actorID == "" {
		return therapy.Session{}, identity.ErrUnauthenticated
	}

	patch := store.Record{
		"endedAt":     time.Now().UTC(),
		"summary":     summary,
		"overallMood": overallMood,
	}
	if err := s.gateway.UpdateByIDIfAbsent(ctx, store.Sessions, sessionID, actorID, "endedAt", patch); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return therapy.Session{}, err
		case errors.Is(err, store.ErrConflict):
			return therapy.Session{}, ErrSessionClosed
		default:
			return therapy.Session{}, fmt.Errorf("close session: %w", err)
		}
	}

	return s.Get(ctx, sessionID, actorID)
}

// List returns the owner's sessions, most recently started first.
func (s *Service) List(ctx context.Context, ownerID string) ([]therapy.Session, error) {
	if ownerID == "" {
		return nil, identity.ErrUnauthenticated
	}

	records, err := s.gateway.QueryByOwner(ctx, store.Sessions, ownerID, "startedAt", true)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]therapy.Session, 0, len(records))
	for _, rec := range records {
		sessions = append(sessions, therapy.SessionFromRecord(rec))
	}
	return sessions, nil
}
