package service

import (
	"context"
	"errors"
	"time"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/storage"
	"github.com/bcnelson/sendernet-subscriptions/internal/validation"
)

// IdentityLookup is the user directory consulted before creating a subscriber.
// FindByEmail returns nil (and no error) when nobody is registered under email.
type IdentityLookup interface {
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
}

// Directory manages the local identity directory and implements IdentityLookup.
type Directory struct {
	store storage.Storage
	now   func() time.Time
}

// Ensure Directory implements IdentityLookup.
var _ IdentityLookup = (*Directory)(nil)

// NewDirectory creates a Directory backed by store.
func NewDirectory(store storage.Storage) *Directory {
	return &Directory{store: store, now: time.Now}
}

// FindByEmail looks up a directory entry.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	identity, err := d.store.FindIdentityByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return identity, err
}

// Create adds a directory entry.
func (d *Directory) Create(ctx context.Context, req *domain.CreateIdentityRequest) (*domain.Identity, error) {
	email := domain.NormalizeEmail(req.Email)

	var errs validation.ValidationErrors
	if err := validation.ValidateEmail(email); err != nil {
		errs.Add(validation.FieldEmail, email, err.Error())
	}
	if len(req.DisplayName) > 255 {
		errs.Add(validation.FieldDisplayName, "", "must be at most 255 characters")
	}
	if errs.HasErrors() {
		return nil, errs
	}

	identity := &domain.Identity{
		Email:       email,
		DisplayName: req.DisplayName,
		CreatedAt:   d.now().UTC(),
	}
	if err := d.store.CreateIdentity(ctx, identity); err != nil {
		return nil, err
	}
	return identity, nil
}

// List returns every directory entry ordered by email.
func (d *Directory) List(ctx context.Context) ([]*domain.Identity, error) {
	return d.store.ListIdentities(ctx)
}

// Delete removes a directory entry.
func (d *Directory) Delete(ctx context.Context, email string) error {
	return d.store.DeleteIdentity(ctx, email)
}
