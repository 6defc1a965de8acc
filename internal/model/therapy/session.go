package therapy

import "time"

// Session is a bounded conversational interaction. It is created active and
// closed exactly once; a closed session is read-only.
type Session struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Title       string     `json:"title,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	OverallMood string     `json:"overallMood,omitempty"`
}

// Closed reports whether the session has been ended.
func (s Session) Closed() bool {
	return s.EndedAt != nil
}

// ToRecord flattens the session for the persistence gateway.
func (s Session) ToRecord() map[string]any {
	rec := map[string]any{
		"id":          s.ID,
		"ownerId":     s.OwnerID,
		"summary":     s.Summary,
		"overallMood": s.OverallMood,
	}
	if !s.StartedAt.IsZero() {
		rec["startedAt"] = s.StartedAt
	}
	if s.EndedAt != nil {
		rec["endedAt"] = *s.EndedAt
	}
	return rec
}

// SessionFromRecord rebuilds a session from a gateway record.
func SessionFromRecord(rec map[string]any) Session {
	s := Session{
		ID:          recString(rec, "id"),
		OwnerID:     recString(rec, "ownerId"),
		StartedAt:   recTime(rec, "startedAt"),
		Summary:     recString(rec, "summary"),
		OverallMood: recString(rec, "overallMood"),
	}
	if ended, ok := rec["endedAt"].(time.Time); ok {
		s.EndedAt = &ended
	}
	// Display-only metadata, derived from the start time.
	if !s.StartedAt.IsZero() {
		s.Title = "Session · " + s.StartedAt.Format("Jan 2, 2006 15:04")
	}
	return s
}

func recString(rec map[string]any, key string) string {
	v, _ := rec[key].(string)
	return v
}

func recTime(rec map[string]any, key string) time.Time {
	v, _ := rec[key].(time.Time)
	return v
}

func recFloat(rec map[string]any, key string) float64 {
	v, _ := rec[key].(float64)
	return v
}
