package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir(), "http://localhost:8080/uploads/")
	require.NoError(t, err)

	key, err := s.Upload(ctx, strings.NewReader("jpeg"), 4, "ticks/shop-1/2024-03-01/t1.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "ticks/shop-1/2024-03-01/t1.jpg", key)

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Download(ctx, key)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "jpeg", string(body))

	u, err := s.GetURL(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/ticks/shop-1/2024-03-01/t1.jpg", u)

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))

	_, err = s.Download(ctx, key)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalStorage_TraversalStaysInsideBase(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	key, err := s.Upload(ctx, strings.NewReader("x"), 1, "../../etc/passwd", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "etc/passwd", key)

	_, err = s.Upload(ctx, strings.NewReader("x"), 1, "..", "text/plain")
	assert.Error(t, err)
}
