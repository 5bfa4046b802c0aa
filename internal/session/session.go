// Package session keeps caller sessions and uses them to default the owner
// and signer fields of scheduling requests.
package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a token has no session
var ErrNotFound = errors.New("session not found")

// HeaderToken is the alternative header carrying a session token
const HeaderToken = "X-Session-Token"

// Session is an authenticated caller
type Session struct {
	Token      string    `json:"token"`
	OwnerID    string    `json:"ownerId"`
	SignerUUID string    `json:"signerUuid,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store persists sessions by token. Sessions never expire.
type Store interface {
	Create(ctx context.Context, sess Session) error
	Get(ctx context.Context, token string) (Session, error)
}

// New builds a session with a fresh random token
func New(ownerID, signerUUID string, now time.Time) Session {
	return Session{
		Token:      strings.ReplaceAll(uuid.NewString(), "-", ""),
		OwnerID:    ownerID,
		SignerUUID: signerUUID,
		CreatedAt:  now.UTC(),
	}
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying sess
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored in ctx, or nil
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(contextKey{}).(*Session)
	return sess
}

// TokenFromRequest extracts the token from "Authorization: Bearer <t>" or
// the X-Session-Token header. It returns "" when neither is present.
func TokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		const prefix = "bearer "
		if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
			if token := strings.TrimSpace(auth[len(prefix):]); token != "" {
				return token
			}
		}
	}
	return strings.TrimSpace(r.Header.Get(HeaderToken))
}
