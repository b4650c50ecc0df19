package storage

import (
	"context"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
)

// Storage defines the interface for the storage layer.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Settings. GetSettings returns domain.ErrNotFound until the first save.
	// SaveSettings replaces every field in one step; readers never see a mix.
	GetSettings(ctx context.Context) (*domain.Settings, error)
	SaveSettings(ctx context.Context, settings *domain.Settings) error

	// Identity directory. Emails are matched case-insensitively.
	CreateIdentity(ctx context.Context, identity *domain.Identity) error
	FindIdentityByEmail(ctx context.Context, email string) (*domain.Identity, error)
	ListIdentities(ctx context.Context) ([]*domain.Identity, error)
	DeleteIdentity(ctx context.Context, email string) error
}
