package therapy

import (
	"time"

	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
)

// SavedRecommendation is a coping resource a user chose to keep. It lives
// outside any session lifecycle and is deletable only by its owner.
type SavedRecommendation struct {
	ID        string        `json:"id"`
	OwnerID   string        `json:"ownerId"`
	Type      string        `json:"type"`
	Content   string        `json:"content"`
	Emotion   emotion.Label `json:"emotion,omitempty"`
	Tags      []string      `json:"tags"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ToRecord flattens the recommendation for the persistence gateway.
func (r SavedRecommendation) ToRecord() map[string]any {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"id":      r.ID,
		"ownerId": r.OwnerID,
		"type":    r.Type,
		"content": r.Content,
		"emotion": string(r.Emotion),
		"tags":    append([]string(nil), tags...),
	}
}

// RecommendationFromRecord rebuilds a saved recommendation from a gateway record.
func RecommendationFromRecord(rec map[string]any) SavedRecommendation {
	out := SavedRecommendation{
		ID:        recString(rec, "id"),
		OwnerID:   recString(rec, "ownerId"),
		Type:      recString(rec, "type"),
		Content:   recString(rec, "content"),
		Emotion:   emotion.Label(recString(rec, "emotion")),
		Tags:      []string{},
		CreatedAt: recTime(rec, "createdAt"),
	}
	if tags, ok := rec["tags"].([]string); ok {
		out.Tags = append([]string{}, tags...)
	}
	return out
}
