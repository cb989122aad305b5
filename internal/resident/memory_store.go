package resident

import (
	"context"
	"strings"
	"sync"
)

type memoryStore struct {
	mu      sync.RWMutex
	byID    map[string]Resident
	byEmail map[string]string
}

// NewMemoryStore builds an in-memory resident store used in tests and when no
// database is configured.
func NewMemoryStore() Store {
	return &memoryStore{
		byID:    make(map[string]Resident),
		byEmail: make(map[string]string),
	}
}

func (s *memoryStore) Create(_ context.Context, r Resident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(r.Email)
	if _, exists := s.byEmail[email]; exists {
		return ErrEmailTaken
	}
	if r.Version == 0 {
		r.Version = 1
	}
	s.byID[r.ID] = r.Clone()
	s.byEmail[email] = r.ID
	return nil
}

func (s *memoryStore) FindByID(_ context.Context, id string) (Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return Resident{}, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *memoryStore) FindByEmail(_ context.Context, email string) (Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return Resident{}, ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *memoryStore) Save(_ context.Context, r Resident) (Resident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[r.ID]
	if !ok {
		return Resident{}, ErrNotFound
	}
	if current.Version != r.Version {
		return Resident{}, ErrVersionConflict
	}
	if oldEmail := strings.ToLower(current.Email); oldEmail != strings.ToLower(r.Email) {
		if _, taken := s.byEmail[strings.ToLower(r.Email)]; taken {
			return Resident{}, ErrEmailTaken
		}
		delete(s.byEmail, oldEmail)
		s.byEmail[strings.ToLower(r.Email)] = r.ID
	}
	r.Version++
	s.byID[r.ID] = r.Clone()
	return r, nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byEmail, strings.ToLower(r.Email))
	delete(s.byID, id)
	return nil
}
