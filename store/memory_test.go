package store

import (
	"context"
	"testing"

	"github.com/anjiri1684/skillazon/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryView_IsReadOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.View(ctx, func(tx Tx) error {
		return tx.CreateUser(ctx, &models.User{Username: "ro", Email: "ro@example.com"})
	})
	assert.Error(t, err)
}

func TestMemoryCreateUser_DuplicatesIgnoreCase(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Transaction(ctx, func(tx Tx) error {
		return tx.CreateUser(ctx, &models.User{Username: "dup", Email: "dup@example.com"})
	}))
	err := s.Transaction(ctx, func(tx Tx) error {
		return tx.CreateUser(ctx, &models.User{Username: "other", Email: "DUP@example.com"})
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryTransaction_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := NewMemoryStore().Transaction(ctx, func(tx Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
