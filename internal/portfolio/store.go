package portfolio

import (
	"sync"

	"portfoliopulse/pkg/contracts/domain"
)

// Store holds the single current portfolio. The dashboard works on one
// portfolio at a time; uploading replaces it wholesale.
type Store struct {
	mu      sync.RWMutex
	current *domain.Portfolio
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the current portfolio.
func (s *Store) Set(p *domain.Portfolio) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = p
}

// Get returns the current portfolio and whether one is loaded.
func (s *Store) Get() (*domain.Portfolio, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, false
	}
	return s.current, true
}

// Clear removes the current portfolio.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}
