package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// timestampFields maps each collection to the field the gateway stamps at
// insert when the caller did not supply one.
var timestampFields = map[string]string{
	Sessions:             "startedAt",
	Messages:             "createdAt",
	EmotionSamples:       "timestamp",
	SavedRecommendations: "createdAt",
}

// MemoryStore implements Gateway with in-memory maps, suitable for early
// iterations and tests. Records are kept in insertion order per collection so
// equal-timestamp sorts stay stable.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string][]Record
	index map[string]map[string]int
	last  time.Time
}

// NewMemoryStore bootstraps an empty in-memory gateway.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string][]Record),
		index: make(map[string]map[string]int),
	}
}

// Insert stores a record, assigning an id and, unless the caller pre-set
// one, a timestamp that never moves backwards across inserts.
func (s *MemoryStore) Insert(_ context.Context, collection string, rec Record) (string, error) {
	if ownerOf(rec) == "" {
		return "", ErrOwnerRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyRecord(rec)

	id, _ := stored["id"].(string)
	if id == "" {
		id = uuid.NewString()
		stored["id"] = id
	}

	if field, ok := timestampFields[collection]; ok {
		if ts, ok := stored[field].(time.Time); !ok || ts.IsZero() {
			stored[field] = s.stamp()
		}
	}

	if s.index[collection] == nil {
		s.index[collection] = make(map[string]int)
	}
	if _, exists := s.index[collection][id]; exists {
		return "", fmt.Errorf("duplicate id %q in collection %s", id, collection)
	}

	s.index[collection][id] = len(s.data[collection])
	s.data[collection] = append(s.data[collection], stored)
	return id, nil
}

// FindByID returns the record only when it exists and is owned by ownerID.
func (s *MemoryStore) FindByID(_ context.Context, collection, id, ownerID string) (Record, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.lookup(collection, id)
	if !ok || ownerOf(rec) != ownerID {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

// QueryByOwner returns all records of the owner, sorted by orderBy.
func (s *MemoryStore) QueryByOwner(_ context.Context, collection, ownerID, orderBy string, descending bool) ([]Record, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	s.mu.RLock()
	matched := make([]Record, 0, 8)
	for _, rec := range s.data[collection] {
		if ownerOf(rec) == ownerID {
			matched = append(matched, copyRecord(rec))
		}
	}
	s.mu.RUnlock()

	sortRecords(matched, orderBy, descending)
	return matched, nil
}

// QueryBySession returns the owner's records attached to one session,
// ascending by orderBy.
func (s *MemoryStore) QueryBySession(_ context.Context, collection, sessionID, ownerID, orderBy string) ([]Record, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	s.mu.RLock()
	matched := make([]Record, 0, 16)
	for _, rec := range s.data[collection] {
		sid, _ := rec["sessionId"].(string)
		if sid == sessionID && ownerOf(rec) == ownerID {
			matched = append(matched, copyRecord(rec))
		}
	}
	s.mu.RUnlock()

	sortRecords(matched, orderBy, false)
	return matched, nil
}

// UpdateByID patches an owned record. The id and ownerId fields are immutable.
func (s *MemoryStore) UpdateByID(_ context.Context, collection, id, ownerID string, patch Record) error {
	if ownerID == "" {
		return ErrOwnerRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookup(collection, id)
	if !ok || ownerOf(rec) != ownerID {
		return ErrNotFound
	}

	for key, value := range patch {
		if key == "id" || key == "ownerId" {
			continue
		}
		rec[key] = copyValue(value)
	}
	return nil
}

// UpdateByIDIfAbsent patches an owned record only while the guard field is
// unset. Check and patch happen under one lock, so concurrent callers cannot
// both win.
func (s *MemoryStore) UpdateByIDIfAbsent(_ context.Context, collection, id, ownerID, guard string, patch Record) error {
	if ownerID == "" {
		return ErrOwnerRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookup(collection, id)
	if !ok || ownerOf(rec) != ownerID {
		return ErrNotFound
	}
	if fieldSet(rec[guard]) {
		return ErrConflict
	}

	for key, value := range patch {
		if key == "id" || key == "ownerId" {
			continue
		}
		rec[key] = copyValue(value)
	}
	return nil
}

// DeleteByID removes an owned record.
func (s *MemoryStore) DeleteByID(_ context.Context, collection, id, ownerID string) error {
	if ownerID == "" {
		return ErrOwnerRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[collection][id]
	if !ok || ownerOf(s.data[collection][pos]) != ownerID {
		return ErrNotFound
	}

	s.data[collection] = append(s.data[collection][:pos], s.data[collection][pos+1:]...)
	delete(s.index[collection], id)
	for trailingID, trailingPos := range s.index[collection] {
		if trailingPos > pos {
			s.index[collection][trailingID] = trailingPos - 1
		}
	}
	return nil
}

// stamp returns the next timestamp. Stamps are distinct and strictly
// increasing even when the wall clock stalls or steps back. Callers must hold
// the write lock.
func (s *MemoryStore) stamp() time.Time {
	now := time.Now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Nanosecond)
	}
	s.last = now
	return now
}

func (s *MemoryStore) lookup(collection, id string) (Record, bool) {
	pos, ok := s.index[collection][id]
	if !ok {
		return nil, false
	}
	return s.data[collection][pos], true
}

func fieldSet(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case time.Time:
		return !t.IsZero()
	case string:
		return t != ""
	default:
		return true
	}
}

func ownerOf(rec Record) string {
	owner, _ := rec["ownerId"].(string)
	return owner
}

func copyRecord(rec Record) Record {
	out := make(Record, len(rec))
	for key, value := range rec {
		out[key] = copyValue(value)
	}
	return out
}

func copyValue(value any) any {
	switch v := value.(type) {
	case map[string]float64:
		m := make(map[string]float64, len(v))
		for k, f := range v {
			m[k] = f
		}
		return m
	case []string:
		return append([]string(nil), v...)
	default:
		return value
	}
}

func sortRecords(records []Record, orderBy string, descending bool) {
	if orderBy == "" {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		if descending {
			return valueLess(records[j][orderBy], records[i][orderBy])
		}
		return valueLess(records[i][orderBy], records[j][orderBy])
	})
}

func valueLess(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	}
	return false
}
