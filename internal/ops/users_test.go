package ops

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lexis/internal/errors"
)

func TestCreateUser(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()

	u, err := CreateUser(ctx, database, CreateUserInput{Username: "  alice "})
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
	require.NotEmpty(t, u.ID)

	got, err := GetUser(ctx, database, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = CreateUser(ctx, database, CreateUserInput{Username: "ALICE"})
	require.True(t, errors.Is(err, errors.ErrConflict), "got %v", err)
}

func TestCreateUser_Validation(t *testing.T) {
	database := setupDB(t)

	for _, name := range []string{"", "   ", "has space", "semi;colon", strings.Repeat("x", MaxUsernameLength+1)} {
		_, err := CreateUser(context.Background(), database, CreateUserInput{Username: name})
		require.True(t, errors.Is(err, errors.ErrValidation), "username %q: got %v", name, err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	database := setupDB(t)

	_, err := GetUser(context.Background(), database, "01MISSING")
	require.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = GetUser(context.Background(), database, "")
	require.True(t, errors.Is(err, errors.ErrValidation))
}

func TestResolveUser(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	alice := mustUser(t, database, "Alice")

	byID, err := ResolveUser(ctx, database, alice.ID)
	require.NoError(t, err)
	require.Equal(t, alice.ID, byID.ID)

	byName, err := ResolveUser(ctx, database, "alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, byName.ID)

	_, err = ResolveUser(ctx, database, "nobody")
	require.True(t, errors.Is(err, errors.ErrNotFound))
}
