package di

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authentity "foodshare_backend/internal/feature/auth/domain/entity"
)

type activeUserFinderFunc func(ctx context.Context, userID string) (*authentity.User, error)

func (f activeUserFinderFunc) ActiveUser(ctx context.Context, userID string) (*authentity.User, error) {
	return f(ctx, userID)
}

func TestOwnerDirectory_OwnerSummary(t *testing.T) {
	t.Parallel()

	t.Run("active user", func(t *testing.T) {
		t.Parallel()
		d := &ownerDirectory{users: activeUserFinderFunc(func(_ context.Context, id string) (*authentity.User, error) {
			return &authentity.User{ID: id, Name: "Asha", Email: "asha@example.com", Phone: "9876543210", PasswordHash: "h"}, nil
		})}

		got, err := d.OwnerSummary(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ID)
		assert.Equal(t, "Asha", got.Name)
		assert.Equal(t, "asha@example.com", got.Email)
		assert.Equal(t, "9876543210", got.Phone)
	})

	t.Run("missing user", func(t *testing.T) {
		t.Parallel()
		d := &ownerDirectory{users: activeUserFinderFunc(func(context.Context, string) (*authentity.User, error) {
			return nil, nil
		})}

		got, err := d.OwnerSummary(context.Background(), "u1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		d := &ownerDirectory{users: activeUserFinderFunc(func(context.Context, string) (*authentity.User, error) {
			return nil, boom
		})}

		got, err := d.OwnerSummary(context.Background(), "u1")
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, got)
	})
}
