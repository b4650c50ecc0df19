// Package redis stores settings and the identity directory in Redis.
// Settings are one JSON document written with a single SET; identities
// live in a hash keyed by normalized email.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/storage"
	goredis "github.com/redis/go-redis/v9"
)

// Store implements storage.Storage on top of a Redis client.
type Store struct {
	client goredis.UniversalClient
	prefix string
	owned  bool
}

// Ensure Store implements storage.Storage.
var _ storage.Storage = (*Store)(nil)

// Open parses a redis:// URL, connects and pings the server.
func Open(ctx context.Context, url, prefix string) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	s := New(client, prefix)
	s.owned = true
	return s, nil
}

// New wraps an existing client. The caller keeps ownership of it.
func New(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "sendernet"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) keySettings() string   { return s.prefix + ":settings" }
func (s *Store) keyIdentities() string { return s.prefix + ":identities" }

// Close closes the client if Open created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

func (s *Store) GetSettings(ctx context.Context) (*domain.Settings, error) {
	raw, err := s.client.Get(ctx, s.keySettings()).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var settings domain.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	if settings.UserGroups == nil {
		settings.UserGroups = []string{}
	}
	return &settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings *domain.Settings) error {
	raw, err := json.Marshal(settings.Clone())
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return s.client.Set(ctx, s.keySettings(), raw, 0).Err()
}

func (s *Store) CreateIdentity(ctx context.Context, identity *domain.Identity) error {
	stored := *identity
	stored.Email = domain.NormalizeEmail(identity.Email)
	raw, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}
	created, err := s.client.HSetNX(ctx, s.keyIdentities(), stored.Email, raw).Result()
	if err != nil {
		return err
	}
	if !created {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (s *Store) FindIdentityByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	raw, err := s.client.HGet(ctx, s.keyIdentities(), domain.NormalizeEmail(email)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var identity domain.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return nil, fmt.Errorf("decoding identity: %w", err)
	}
	return &identity, nil
}

func (s *Store) ListIdentities(ctx context.Context) ([]*domain.Identity, error) {
	entries, err := s.client.HGetAll(ctx, s.keyIdentities()).Result()
	if err != nil {
		return nil, err
	}
	result := make([]*domain.Identity, 0, len(entries))
	for email, raw := range entries {
		var identity domain.Identity
		if err := json.Unmarshal([]byte(raw), &identity); err != nil {
			return nil, fmt.Errorf("decoding identity %s: %w", email, err)
		}
		result = append(result, &identity)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Email < result[j].Email
	})
	return result, nil
}

func (s *Store) DeleteIdentity(ctx context.Context, email string) error {
	n, err := s.client.HDel(ctx, s.keyIdentities(), domain.NormalizeEmail(email)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
