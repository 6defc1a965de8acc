package therapy

import (
	"time"

	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
)

// EmotionSample is one entry on a session's emotion timeline, recorded per
// fused observation. Append-only.
type EmotionSample struct {
	ID        string                    `json:"id"`
	SessionID string                    `json:"sessionId"`
	OwnerID   string                    `json:"-"`
	Timestamp time.Time                 `json:"timestamp"`
	Primary   emotion.Label             `json:"primaryEmotion"`
	Values    map[emotion.Label]float64 `json:"values"`
	Source    emotion.Source            `json:"source"`
}

// ToRecord flattens the sample for the persistence gateway.
func (s EmotionSample) ToRecord() map[string]any {
	values := make(map[string]float64, len(s.Values))
	for label, score := range s.Values {
		values[string(label)] = score
	}
	rec := map[string]any{
		"id":             s.ID,
		"sessionId":      s.SessionID,
		"ownerId":        s.OwnerID,
		"primaryEmotion": string(s.Primary),
		"values":         values,
		"source":         string(s.Source),
	}
	if !s.Timestamp.IsZero() {
		rec["timestamp"] = s.Timestamp
	}
	return rec
}

// SampleFromRecord rebuilds an emotion sample from a gateway record.
func SampleFromRecord(rec map[string]any) EmotionSample {
	sample := EmotionSample{
		ID:        recString(rec, "id"),
		SessionID: recString(rec, "sessionId"),
		OwnerID:   recString(rec, "ownerId"),
		Timestamp: recTime(rec, "timestamp"),
		Primary:   emotion.Label(recString(rec, "primaryEmotion")),
		Source:    emotion.Source(recString(rec, "source")),
	}
	if values, ok := rec["values"].(map[string]float64); ok {
		sample.Values = make(map[emotion.Label]float64, len(values))
		for label, score := range values {
			sample.Values[emotion.Label(label)] = score
		}
	}
	return sample
}
