package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_CreateAndVerify(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "u_1", "bob", "bob@example.com", "hunter2secret", RoleUser))

	u, err := s.Verify(ctx, "bob@example.com", "hunter2secret")
	require.NoError(t, err)
	assert.Equal(t, "u_1", u.ID)
	assert.Equal(t, RoleUser, u.Role)

	_, err = s.Verify(ctx, "bob@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Verify(ctx, "nobody@example.com", "hunter2secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMemStore_DuplicateEmail(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "u_1", "bob", "bob@example.com", "hunter2secret", RoleUser))

	err := s.Create(ctx, "u_2", "bobby", "bob@example.com", "other-secret", RoleUser)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestMemStore_EmailNormalized(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "u_1", "bob", "  Bob@Example.COM ", "hunter2secret", RoleUser))

	u, err := s.Verify(ctx, "bob@example.com", "hunter2secret")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", u.Email)

	err = s.Create(ctx, "u_2", "bobby", "BOB@example.com", "other-secret", RoleUser)
	assert.ErrorIs(t, err, ErrEmailExists)
}
