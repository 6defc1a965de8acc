package recommendation

import (
	"context"
	"errors"
	"fmt"

	"github.com/linxiaoyu/mindhaven/backend/internal/identity"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/therapy"
	"github.com/linxiaoyu/mindhaven/backend/internal/store"
)

// ErrContentRequired rejects recommendations without content.
var ErrContentRequired = errors.New("recommendation content is required")

// Service manages the coping resources a user saved for later. Independent of
// any session lifecycle; owner-scoped through the gateway.
type Service struct {
	gateway store.Gateway
}

// NewService binds the recommendation service to a persistence gateway.
func NewService(gateway store.Gateway) *Service {
	return &Service{gateway: gateway}
}

// Save stores a recommendation for the owner.
func (s *Service) Save(ctx context.Context, ownerID, recType, content string, label emotion.Label, tags []string) (therapy.SavedRecommendation, error) {
	if ownerID == "" {
		return therapy.SavedRecommendation{}, identity.ErrUnauthenticated
	}
	if content == "" {
		return therapy.SavedRecommendation{}, ErrContentRequired
	}

	rec := therapy.SavedRecommendation{
		OwnerID: ownerID,
		Type:    recType,
		Content: content,
		Emotion: label,
		Tags:    tags,
	}

	id, err := s.gateway.Insert(ctx, store.SavedRecommendations, rec.ToRecord())
	if err != nil {
		return therapy.SavedRecommendation{}, fmt.Errorf("persist recommendation: %w", err)
	}

	stored, err := s.gateway.FindByID(ctx, store.SavedRecommendations, id, ownerID)
	if err != nil {
		return therapy.SavedRecommendation{}, fmt.Errorf("load recommendation: %w", err)
	}
	return therapy.RecommendationFromRecord(stored), nil
}

// List returns the owner's recommendations, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]therapy.SavedRecommendation, error) {
	if ownerID == "" {
		return nil, identity.ErrUnauthenticated
	}

	records, err := s.gateway.QueryByOwner(ctx, store.SavedRecommendations, ownerID, "createdAt", true)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}

	out := make([]therapy.SavedRecommendation, 0, len(records))
	for _, rec := range records {
		out = append(out, therapy.RecommendationFromRecord(rec))
	}
	return out, nil
}

// Delete removes one of the owner's recommendations.
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	if ownerID == "" {
		return identity.ErrUnauthenticated
	}

	if err := s.gateway.DeleteByID(ctx, store.SavedRecommendations, id, ownerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete recommendation: %w", err)
	}
	return nil
}
