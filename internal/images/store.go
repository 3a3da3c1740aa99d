package images

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates the requested image does not exist
	ErrNotFound = errors.New("image not found")
	// ErrInvalidID indicates the provided image ID is invalid
	ErrInvalidID = errors.New("invalid image ID")
)

// Store indexes every Ref the server has handed out so it can be served by ID.
// Refs registered through Sync belong to one owner and are dropped once the
// owner stops holding them.
type Store struct {
	mu    sync.RWMutex
	refs  map[string]*Ref
	owned map[string]map[string]struct{}
}

// NewStore creates an empty image store
func NewStore() *Store {
	return &Store{
		refs:  make(map[string]*Ref),
		owned: make(map[string]map[string]struct{}),
	}
}

// Sync makes refs the complete set held by owner. Refs the owner held before
// but not any more are removed. It returns the number removed.
func (s *Store) Sync(owner string, refs ...*Ref) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	held := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		held[ref.ID()] = struct{}{}
		s.refs[ref.ID()] = ref
	}

	released := 0
	for id := range s.owned[owner] {
		if _, ok := held[id]; !ok {
			delete(s.refs, id)
			released++
		}
	}
	s.owned[owner] = held
	return released
}

// Release removes every ref registered for owner and returns how many there were
func (s *Store) Release(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	held := s.owned[owner]
	for id := range held {
		delete(s.refs, id)
	}
	delete(s.owned, owner)
	return len(held)
}

// Get retrieves a ref by ID
func (s *Store) Get(id string) (*Ref, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	ref, exists := s.refs[id]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}
	return ref, nil
}

// Count returns number of stored images
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.refs)
}
