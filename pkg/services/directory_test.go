package services

import (
	"testing"

	"github.com/dukex/taskdesk/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory_Create(t *testing.T) {
	f := newFixture(t)

	user, err := f.directory.Create(t.Context(), &models.UserRef{Username: "  dave  "})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "dave", user.Username)

	_, err = f.directory.Create(t.Context(), &models.UserRef{Username: " "})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.directory.Create(t.Context(), &models.UserRef{ID: "alice", Username: "alice2"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	users, err := f.directory.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, users, 4)
}

func TestDirectory_Get(t *testing.T) {
	f := newFixture(t)

	user, err := f.directory.Get(t.Context(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)

	_, err = f.directory.Get(t.Context(), "nobody")
	require.ErrorIs(t, err, ErrUserNotFound)
	assert.True(t, IsNotFoundError(err))
}

func TestDirectory_Resolve(t *testing.T) {
	f := newFixture(t)

	users, err := f.directory.Resolve(t.Context(), []string{"bob", "alice", "bob"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].ID)
	assert.Equal(t, "alice", users[1].ID)

	users, err = f.directory.Resolve(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, users)

	_, err = f.directory.Resolve(t.Context(), []string{"alice", "ghost"})
	require.ErrorIs(t, err, ErrUnknownUser)
	assert.True(t, IsValidationError(err))
}

func TestDirectory_Known(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.directory.Known(t.Context(), ""))
	require.NoError(t, f.directory.Known(t.Context(), "carol"))
	require.ErrorIs(t, f.directory.Known(t.Context(), "ghost"), ErrUnknownUser)
}
