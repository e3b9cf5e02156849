package user

import (
	"context"
	"fmt"
	"sync"

	"courier/internal/auth/models"
	id "courier/pkg/domain"
	"courier/pkg/platform/sentinel"
)

// InMemoryUserStore keeps principals keyed by ID with an identity index.
// Identities are stored normalized, so lookups are exact-match.
type InMemoryUserStore struct {
	mu         sync.RWMutex
	users      map[id.UserID]*models.Principal
	byIdentity map[id.Identity]id.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:      make(map[id.UserID]*models.Principal),
		byIdentity: make(map[id.Identity]id.UserID),
	}
}

// Create inserts principal unless its identity is taken.
func (s *InMemoryUserStore) Create(_ context.Context, principal *models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byIdentity[principal.Identity]; taken {
		return fmt.Errorf("identity %s: %w", principal.Identity, sentinel.ErrConflict)
	}
	stored := *principal
	s.users[principal.ID] = &stored
	s.byIdentity[principal.Identity] = principal.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.users[userID]; ok {
		found := *p
		return &found, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryUserStore) FindByIdentity(_ context.Context, identity id.Identity) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID, ok := s.byIdentity[identity]; ok {
		found := *s.users[userID]
		return &found, nil
	}
	return nil, sentinel.ErrNotFound
}

// Count returns the number of principals.
func (s *InMemoryUserStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}
