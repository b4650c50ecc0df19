package service

import (
	"context"
	"testing"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/storage/memory"
	"github.com/bcnelson/sendernet-subscriptions/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory(t *testing.T) {
	dir := NewDirectory(memory.New())
	ctx := context.Background()

	created, err := dir.Create(ctx, &domain.CreateIdentityRequest{Email: " Alice@Example.com ", DisplayName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", created.Email)

	_, err = dir.Create(ctx, &domain.CreateIdentityRequest{Email: "alice@example.com"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = dir.Create(ctx, &domain.CreateIdentityRequest{Email: "nope"})
	errs, ok := validation.FieldErrors(err)
	require.True(t, ok)
	assert.NotNil(t, errs.For(validation.FieldEmail))

	found, err := dir.FindByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", found.DisplayName)

	missing, err := dir.FindByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := dir.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, dir.Delete(ctx, "alice@example.com"))
	assert.ErrorIs(t, dir.Delete(ctx, "alice@example.com"), domain.ErrNotFound)
}
