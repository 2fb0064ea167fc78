package session

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists is returned when creating a session whose ID is taken.
	ErrSessionExists = errors.New("session already exists")
)

// Repository stores managed sessions.
type Repository interface {
	Create(ctx context.Context, record *Record) error
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
	Delete(ctx context.Context, id uuid.UUID) (*Record, error)
	Count(ctx context.Context) (int, error)
}

type memoryRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
}

// NewMemoryRepository creates an in-memory repository. Sessions are not
// persisted; they live as long as the process.
func NewMemoryRepository() Repository {
	return &memoryRepository{records: make(map[uuid.UUID]*Record)}
}

// Create stores a new record.
func (r *memoryRepository) Create(ctx context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := record.Session.ID()
	if _, ok := r.records[id]; ok {
		return ErrSessionExists
	}
	r.records[id] = record
	return nil
}

// Get retrieves a record by session ID.
func (r *memoryRepository) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return record, nil
}

// List returns all records, oldest first.
func (r *memoryRepository) List(ctx context.Context) ([]*Record, error) {
	r.mu.RLock()
	out := make([]*Record, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, record)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out, nil
}

// Delete removes a record and returns it.
func (r *memoryRepository) Delete(ctx context.Context, id uuid.UUID) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	delete(r.records, id)
	return record, nil
}

// Count returns the number of stored records.
func (r *memoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}
