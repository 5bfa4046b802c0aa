// Package storage defines the queue store contract shared by every job kind.
package storage

import (
	"context"
	"time"

	"github.com/cuongbtq/kamo-scheduler/internal/domain"
)

// Filter narrows a List call. Empty fields match everything.
type Filter struct {
	Status  domain.Status
	OwnerID string
}

// Record is the constraint satisfied by pointers to job records. Stores use it
// to index records without knowing their concrete kind.
type Record[T any] interface {
	*T
	Key() string
	State() domain.Status
	Owner() string
	Due() time.Time
	Stamp(now time.Time)
}

// Deduplicated is implemented by record pointers that carry a key which must be
// unique across the store, in addition to the ID.
type Deduplicated interface {
	DedupKey() string
}

// Store is an ordered, mutable-in-place collection of job records of one kind.
type Store[T any] interface {
	// Append inserts a new record. It fails with domain.ErrDuplicateID when the ID
	// is taken and with domain.ErrDuplicateKey when a Deduplicated record's
	// non-empty key is.
	Append(ctx context.Context, rec T) error

	// Find returns a copy of the record or domain.ErrNotFound.
	Find(ctx context.Context, id string) (T, error)

	// List returns a fresh snapshot ordered by due time ascending, ties broken
	// by insertion order.
	List(ctx context.Context, filter Filter) ([]T, error)

	// Update applies mutate to exactly one record and stamps its updated-at time.
	// If mutate returns an error the record is left unchanged and the error is
	// returned as is.
	Update(ctx context.Context, id string, mutate func(*T) error) (T, error)
}

// CastStore holds scheduled casts
type CastStore = Store[domain.CastJob]

// CoinStore holds scheduled coin creations
type CoinStore = Store[domain.CoinJob]
