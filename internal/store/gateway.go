// Package store defines the owner-scoped persistence gateway the services
// depend on. The gateway itself enforces ownership: a record that exists but
// belongs to someone else is indistinguishable from one that does not exist.
package store

import (
	"context"
	"errors"
)

// Collection names used by the services.
const (
	Sessions             = "sessions"
	Messages             = "messages"
	EmotionSamples       = "emotion_samples"
	SavedRecommendations = "saved_recommendations"
)

// Record is the flattened document shape the gateway stores. Every record
// carries an "ownerId" and gets an "id" and a timestamp assigned at insert.
type Record map[string]any

var (
	// ErrNotFound covers both absent and not-owned records.
	ErrNotFound = errors.New("record not found")
	// ErrOwnerRequired rejects any operation without an acting owner.
	ErrOwnerRequired = errors.New("owner id is required")
	// ErrConflict reports that a guarded update lost: the guard field was
	// already set by an earlier writer.
	ErrConflict = errors.New("guard field already set")
)

// Gateway is the abstract relational store contract. Implementations must
// assign monotonically non-decreasing timestamps at insert and must apply the
// owner filter on every operation.
type Gateway interface {
	Insert(ctx context.Context, collection string, rec Record) (string, error)
	FindByID(ctx context.Context, collection, id, ownerID string) (Record, error)
	QueryByOwner(ctx context.Context, collection, ownerID, orderBy string, descending bool) ([]Record, error)
	QueryBySession(ctx context.Context, collection, sessionID, ownerID, orderBy string) ([]Record, error)
	UpdateByID(ctx context.Context, collection, id, ownerID string, patch Record) error
	// UpdateByIDIfAbsent applies the patch only while the guard field is
	// still unset, atomically. Lets callers make one-shot transitions
	// (closing a session) safe under concurrency.
	UpdateByIDIfAbsent(ctx context.Context, collection, id, ownerID, guard string, patch Record) error
	DeleteByID(ctx context.Context, collection, id, ownerID string) error
}
