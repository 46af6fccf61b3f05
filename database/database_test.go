package database

import (
	"context"
	"testing"

	config "github.com/anjiri1684/skillazon/configs"
	"github.com/anjiri1684/skillazon/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestOpenStore_Memory(t *testing.T) {
	s, err := OpenStore(config.DatabaseConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)
}

func TestOpenStore_FallsBackWithoutURL(t *testing.T) {
	s, err := OpenStore(config.DatabaseConfig{Driver: "postgres", Fallback: true})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)

	_, err = OpenStore(config.DatabaseConfig{Driver: "postgres"})
	assert.Error(t, err)
}

func TestSeedAdmin_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	cfg := config.AdminConfig{Email: "admin@skillazon.app", Password: "change-me", Username: "admin"}

	require.NoError(t, SeedAdmin(ctx, s, cfg))
	require.NoError(t, SeedAdmin(ctx, s, cfg))

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		users, err := tx.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.True(t, users[0].IsAdmin)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].Password), []byte("change-me")))
		return nil
	}))
}

func TestSeedAdmin_SkipsWithoutCredentials(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, SeedAdmin(context.Background(), s, config.AdminConfig{}))
}
