package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/linxiaoyu/mindhaven/backend/internal/identity"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/therapy"
	sessionservice "github.com/linxiaoyu/mindhaven/backend/internal/service/session"
	"github.com/linxiaoyu/mindhaven/backend/internal/store"
)

var (
	// ErrInvalidRole rejects roles outside {user, assistant}.
	ErrInvalidRole = errors.New("invalid message role")
	// ErrEmptyContent rejects blank turns.
	ErrEmptyContent = errors.New("message content is required")
	// ErrObservationRole rejects an emotion observation attached to an
	// assistant turn; observations describe the user.
	ErrObservationRole = errors.New("emotion observation is only valid on user turns")
)

// Service is the append-only conversation log. Each user turn may carry a
// fused emotion observation, which is also recorded on the session's emotion
// timeline with the message's gateway timestamp.
type Service struct {
	gateway store.Gateway
}

// NewService binds the conversation log to a persistence gateway.
func NewService(gateway store.Gateway) *Service {
	return &Service{gateway: gateway}
}

// Append records one turn. The session must exist, be owned by the actor and
// still be active; "not owned" reads as "not found".
func (s *Service) Append(ctx context.Context, sessionID, actorID string, role therapy.Role, content string, obs *emotion.Observation) (therapy.Message, error) {
	if actorID == "" {
		return therapy.Message{}, identity.ErrUnauthenticated
	}
	if !therapy.ValidRole(role) {
		return therapy.Message{}, ErrInvalidRole
	}
	if content == "" {
		return therapy.Message{}, ErrEmptyContent
	}
	if obs != nil && role != therapy.RoleUser {
		return therapy.Message{}, ErrObservationRole
	}

	session, err := s.ownedSession(ctx, sessionID, actorID)
	if err != nil {
		return therapy.Message{}, err
	}
	if session.Closed() {
		return therapy.Message{}, sessionservice.ErrSessionClosed
	}

	message := therapy.Message{
		SessionID: sessionID,
		OwnerID:   actorID,
		Role:      role,
		Content:   content,
	}
	if obs != nil {
		message.DetectedEmotion = obs.Primary
		message.EmotionConfidence = obs.Confidence
	}

	id, err := s.gateway.Insert(ctx, store.Messages, message.ToRecord())
	if err != nil {
		return therapy.Message{}, fmt.Errorf("persist message: %w", err)
	}

	// Re-read to learn the timestamp the gateway assigned.
	rec, err := s.gateway.FindByID(ctx, store.Messages, id, actorID)
	if err != nil {
		return therapy.Message{}, fmt.Errorf("load message: %w", err)
	}
	message = therapy.MessageFromRecord(rec)

	// A close may have landed between the state check and the insert. Re-read
	// the session and take the message back out if so; the turn then reports
	// the same error a late sequential append would.
	session, err = s.ownedSession(ctx, sessionID, actorID)
	if err != nil {
		return therapy.Message{}, err
	}
	if session.Closed() {
		_ = s.gateway.DeleteByID(ctx, store.Messages, id, actorID)
		return therapy.Message{}, sessionservice.ErrSessionClosed
	}

	if obs != nil {
		sample := therapy.EmotionSample{
			SessionID: sessionID,
			OwnerID:   actorID,
			Timestamp: message.CreatedAt,
			Primary:   obs.Primary,
			Values:    obs.Values,
			Source:    obs.Source,
		}
		if _, err := s.gateway.Insert(ctx, store.EmotionSamples, sample.ToRecord()); err != nil {
			return therapy.Message{}, fmt.Errorf("persist emotion sample: %w", err)
		}
	}

	return message, nil
}

// Read returns the session's messages in ascending createdAt order.
func (s *Service) Read(ctx context.Context, sessionID, actorID string) ([]therapy.Message, error) {
	if actorID == "" {
		return nil, identity.ErrUnauthenticated
	}
	if _, err := s.ownedSession(ctx, sessionID, actorID); err != nil {
		return nil, err
	}

	records, err := s.gateway.QueryBySession(ctx, store.Messages, sessionID, actorID, "createdAt")
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	messages := make([]therapy.Message, 0, len(records))
	for _, rec := range records {
		messages = append(messages, therapy.MessageFromRecord(rec))
	}
	return messages, nil
}

// Samples returns the session's emotion timeline in ascending timestamp order.
func (s *Service) Samples(ctx context.Context, sessionID, actorID string) ([]therapy.EmotionSample, error) {
	if actorID == "" {
		return nil, identity.ErrUnauthenticated
	}
	if _, err := s.ownedSession(ctx, sessionID, actorID); err != nil {
		return nil, err
	}

	records, err := s.gateway.QueryBySession(ctx, store.EmotionSamples, sessionID, actorID, "timestamp")
	if err != nil {
		return nil, fmt.Errorf("load emotion timeline: %w", err)
	}

	samples := make([]therapy.EmotionSample, 0, len(records))
	for _, rec := range records {
		samples = append(samples, therapy.SampleFromRecord(rec))
	}
	return samples, nil
}

func (s *Service) ownedSession(ctx context.Context, sessionID, actorID string) (therapy.Session, error) {
	rec, err := s.gateway.FindByID(ctx, store.Sessions, sessionID, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return therapy.Session{}, err
		}
		return therapy.Session{}, fmt.Errorf("load session: %w", err)
	}
	return therapy.SessionFromRecord(rec), nil
}
