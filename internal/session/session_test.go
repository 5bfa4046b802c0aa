package session

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cuongbtq/kamo-scheduler/internal/scheduler"
	"github.com/cuongbtq/kamo-scheduler/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	a := New("42", "signer-1", now)
	b := New("42", "signer-1", now)

	assert.Len(t, a.Token, 32)
	assert.NotEqual(t, a.Token, b.Token)
	assert.Equal(t, "42", a.OwnerID)
	assert.Equal(t, "signer-1", a.SignerUUID)
	assert.Equal(t, time.UTC, a.CreatedAt.Location())
	assert.True(t, a.CreatedAt.Equal(now))
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "none", want: ""},
		{name: "bearer", headers: map[string]string{"Authorization": "Bearer abc"}, want: "abc"},
		{name: "bearer lowercase", headers: map[string]string{"Authorization": "bearer abc"}, want: "abc"},
		{name: "session header", headers: map[string]string{HeaderToken: "xyz"}, want: "xyz"},
		{
			name:    "bearer wins over session header",
			headers: map[string]string{"Authorization": "Bearer abc", HeaderToken: "xyz"},
			want:    "abc",
		},
		{
			name:    "non bearer authorization falls back",
			headers: map[string]string{"Authorization": "Basic dXNlcg==", HeaderToken: "xyz"},
			want:    "xyz",
		},
		{name: "empty bearer", headers: map[string]string{"Authorization": "Bearer   "}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, TokenFromRequest(req))
		})
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	sess := New("42", "signer-1", time.Now())
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess, got)
}

func TestBindCast(t *testing.T) {
	sess := &Session{Token: "t", OwnerID: "42", SignerUUID: "session-signer"}

	tests := []struct {
		name string
		sess *Session
		in   scheduler.CastInput
		want scheduler.CastInput
	}{
		{
			name: "fills empty fields",
			sess: sess,
			in:   scheduler.CastInput{Text: "gm"},
			want: scheduler.CastInput{Text: "gm", OwnerID: "42", SignerUUID: "session-signer"},
		},
		{
			name: "explicit fields win",
			sess: sess,
			in:   scheduler.CastInput{Text: "gm", OwnerID: "7", SignerUUID: "mine"},
			want: scheduler.CastInput{Text: "gm", OwnerID: "7", SignerUUID: "mine"},
		},
		{
			name: "partial",
			sess: sess,
			in:   scheduler.CastInput{Text: "gm", SignerUUID: "mine"},
			want: scheduler.CastInput{Text: "gm", OwnerID: "42", SignerUUID: "mine"},
		},
		{
			name: "no session",
			in:   scheduler.CastInput{Text: "gm"},
			want: scheduler.CastInput{Text: "gm"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			BindCast(tt.sess, &in)
			assert.Equal(t, tt.want, in)
		})
	}
}

func TestBindCoinAndOwner(t *testing.T) {
	sess := &Session{Token: "t", OwnerID: "42", SignerUUID: "s"}

	coin := scheduler.CoinInput{Title: "Demo"}
	BindCoin(sess, &coin)
	assert.Equal(t, "42", coin.OwnerID)

	explicit := scheduler.CoinInput{Title: "Demo", OwnerID: "7"}
	BindCoin(sess, &explicit)
	assert.Equal(t, "7", explicit.OwnerID)

	filter := storage.Filter{}
	BindOwner(sess, &filter)
	assert.Equal(t, "42", filter.OwnerID)

	filter = storage.Filter{OwnerID: "7"}
	BindOwner(sess, &filter)
	assert.Equal(t, "7", filter.OwnerID)

	filter = storage.Filter{}
	BindOwner(nil, &filter)
	assert.Empty(t, filter.OwnerID)
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	sess := &Session{Token: "t", OwnerID: "42"}
	ctx := NewContext(context.Background(), sess)
	assert.Same(t, sess, FromContext(ctx))
}
