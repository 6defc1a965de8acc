package therapy

import (
	"time"

	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
)

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ValidRole reports whether the role is one the log accepts.
func ValidRole(r Role) bool {
	return r == RoleUser || r == RoleAssistant
}

// Message 表示会话日志中的一条记录，只增不改。
// DetectedEmotion/EmotionConfidence 仅在用户回合携带情绪观测时填充。
type Message struct {
	ID                string        `json:"id"`
	SessionID         string        `json:"sessionId"`
	OwnerID           string        `json:"-"`
	Role              Role          `json:"role"`
	Content           string        `json:"content"`
	DetectedEmotion   emotion.Label `json:"detectedEmotion,omitempty"`
	EmotionConfidence float64       `json:"emotionConfidence,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// ToRecord flattens the message for the persistence gateway. The owner id is
// denormalized onto the record so the gateway can enforce its owner filter.
func (m Message) ToRecord() map[string]any {
	rec := map[string]any{
		"id":        m.ID,
		"sessionId": m.SessionID,
		"ownerId":   m.OwnerID,
		"role":      string(m.Role),
		"content":   m.Content,
	}
	if m.DetectedEmotion != "" {
		rec["detectedEmotion"] = string(m.DetectedEmotion)
		rec["emotionConfidence"] = m.EmotionConfidence
	}
	if !m.CreatedAt.IsZero() {
		rec["createdAt"] = m.CreatedAt
	}
	return rec
}

// MessageFromRecord rebuilds a message from a gateway record.
func MessageFromRecord(rec map[string]any) Message {
	return Message{
		ID:                recString(rec, "id"),
		SessionID:         recString(rec, "sessionId"),
		OwnerID:           recString(rec, "ownerId"),
		Role:              Role(recString(rec, "role")),
		Content:           recString(rec, "content"),
		DetectedEmotion:   emotion.Label(recString(rec, "detectedEmotion")),
		EmotionConfidence: recFloat(rec, "emotionConfidence"),
		CreatedAt:         recTime(rec, "createdAt"),
	}
}
