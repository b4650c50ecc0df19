package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/storage"
)

// Store is an in-memory implementation of the storage interface for testing.
type Store struct {
	mu sync.RWMutex

	settings   *domain.Settings
	identities map[string]*domain.Identity // key: normalized email
}

// Ensure Store implements storage.Storage.
var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		identities: make(map[string]*domain.Identity),
	}
}

func (s *Store) Close() error { return nil }

// ============================================
// Settings
// ============================================

func (s *Store) GetSettings(ctx context.Context) (*domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return nil, domain.ErrNotFound
	}
	return s.settings.Clone(), nil
}

func (s *Store) SaveSettings(ctx context.Context, settings *domain.Settings) error {
	next := settings.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = next
	return nil
}

// ============================================
// Identities
// ============================================

func (s *Store) CreateIdentity(ctx context.Context, identity *domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.NormalizeEmail(identity.Email)
	if _, exists := s.identities[key]; exists {
		return domain.ErrAlreadyExists
	}
	stored := *identity
	stored.Email = key
	s.identities[key] = &stored
	return nil
}

func (s *Store) FindIdentityByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	stored := *identity
	return &stored, nil
}

func (s *Store) ListIdentities(ctx context.Context) ([]*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*domain.Identity, 0, len(s.identities))
	for _, identity := range s.identities {
		stored := *identity
		result = append(result, &stored)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Email < result[j].Email
	})
	return result, nil
}

func (s *Store) DeleteIdentity(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.NormalizeEmail(email)
	if _, ok := s.identities[key]; !ok {
		return domain.ErrNotFound
	}
	delete(s.identities, key)
	return nil
}
