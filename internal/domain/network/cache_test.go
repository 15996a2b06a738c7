package network

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	calls int
}

func (r *countingRepo) GetByID(ctx context.Context, id string) (Network, error) {
	r.calls++
	if id == "missing" {
		return Network{}, ErrNetworkNotFound
	}
	return Default(id), nil
}

func (r *countingRepo) List(ctx context.Context) ([]Network, error) {
	return []Network{Default("n1")}, nil
}

func TestCachedRepository(t *testing.T) {
	repo := &countingRepo{}
	cache := NewCachedRepository(repo, time.Minute)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := cache.GetByID(ctx, "n1")
	require.NoError(t, err)
	_, err = cache.GetByID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	now = now.Add(2 * time.Minute)
	_, err = cache.GetByID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)

	cache.Invalidate("")
	_, err = cache.GetByID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, 3, repo.calls)

	_, err = cache.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNetworkNotFound)
	_, _ = cache.GetByID(ctx, "missing")
	assert.Equal(t, 5, repo.calls)
}
