package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)

		client, err := NewClient(&Config{Addr: mr.Addr()}, logger)
		require.NoError(t, err)
		defer client.Close()

		require.NoError(t, client.GetClient().Set(context.Background(), "k", "v", 0).Err())
		got, err := mr.Get("k")
		require.NoError(t, err)
		assert.Equal(t, "v", got)
	})

	t.Run("unreachable", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		_, err = NewClient(&Config{Addr: addr}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to ping Redis")
	})
}
