package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewRedisStore(rdb), mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	sess := New("42", "signer-42", time.Date(2026, 3, 1, 12, 0, 0, 123, time.UTC))
	require.NoError(t, store.Create(ctx, sess))

	assert.Equal(t, "42", mr.HGet(sessionKey(sess.Token), "owner_id"))

	got, err := store.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.Token, got.Token)
	assert.Equal(t, "42", got.OwnerID)
	assert.Equal(t, "signer-42", got.SignerUUID)
	assert.True(t, sess.CreatedAt.Equal(got.CreatedAt))

	_, err = store.Get(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("corrupt created_at", func(t *testing.T) {
		store, mr := newTestRedisStore(t)
		mr.HSet(sessionKey("bad"), "owner_id", "42", "created_at", "yesterday")

		_, err := store.Get(ctx, "bad")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("server down", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		defer rdb.Close()
		store := NewRedisStore(rdb)
		mr.Close()

		err = store.Create(ctx, New("42", "", time.Now()))
		assert.Error(t, err)

		_, err = store.Get(ctx, "any")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}
