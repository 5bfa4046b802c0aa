package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

var _ Store = (*RedisStore)(nil)

// RedisStore keeps one hash per session token
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a session store on rdb
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func sessionKey(token string) string {
	return keyPrefix + token
}

// Create writes the session hash
func (s *RedisStore) Create(ctx context.Context, sess Session) error {
	err := s.rdb.HSet(ctx, sessionKey(sess.Token), map[string]interface{}{
		"owner_id":    sess.OwnerID,
		"signer_uuid": sess.SignerUUID,
		"created_at":  sess.CreatedAt.Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get reads the session hash for token
func (s *RedisStore) Get(ctx context.Context, token string) (Session, error) {
	fields, err := s.rdb.HGetAll(ctx, sessionKey(token)).Result()
	if err != nil {
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	if len(fields) == 0 {
		return Session{}, ErrNotFound
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return Session{}, fmt.Errorf("failed to parse session created_at: %w", err)
	}

	return Session{
		Token:      token,
		OwnerID:    fields["owner_id"],
		SignerUUID: fields["signer_uuid"],
		CreatedAt:  createdAt,
	}, nil
}
