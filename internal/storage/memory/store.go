// Package memory provides a process-lifetime, in-memory queue store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/kamo-scheduler/internal/domain"
	"github.com/cuongbtq/kamo-scheduler/internal/storage"
)

var (
	_ storage.CastStore = (*Store[domain.CastJob, *domain.CastJob])(nil)
	_ storage.CoinStore = (*Store[domain.CoinJob, *domain.CoinJob])(nil)
)

type entry[T any] struct {
	seq uint64
	rec T
}

// Store is a generic in-memory job store. Safe for concurrent access.
type Store[T any, P storage.Record[T]] struct {
	mu      sync.RWMutex
	records map[string]*entry[T]
	dedup   map[string]string
	nextSeq uint64
	now     func() time.Time
}

// New returns an empty Store
func New[T any, P storage.Record[T]]() *Store[T, P] {
	return &Store[T, P]{
		records: make(map[string]*entry[T]),
		dedup:   make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewCastStore returns an empty in-memory cast store
func NewCastStore() *Store[domain.CastJob, *domain.CastJob] {
	return New[domain.CastJob, *domain.CastJob]()
}

// NewCoinStore returns an empty in-memory coin store
func NewCoinStore() *Store[domain.CoinJob, *domain.CoinJob] {
	return New[domain.CoinJob, *domain.CoinJob]()
}

// Append inserts a copy of rec
func (s *Store[T, P]) Append(_ context.Context, rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := P(&rec).Key()
	if _, exists := s.records[key]; exists {
		return domain.ErrDuplicateID
	}
	dedupKey := dedupKeyOf(P(&rec))
	if dedupKey != "" {
		if _, exists := s.dedup[dedupKey]; exists {
			return domain.ErrDuplicateKey
		}
		s.dedup[dedupKey] = key
	}
	s.nextSeq++
	s.records[key] = &entry[T]{seq: s.nextSeq, rec: rec}
	return nil
}

func dedupKeyOf(rec any) string {
	if d, ok := rec.(storage.Deduplicated); ok {
		return d.DedupKey()
	}
	return ""
}

// Find returns a copy of the record with the given ID
func (s *Store[T, P]) Find(_ context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.records[id]
	if !ok {
		var zero T
		return zero, domain.ErrNotFound
	}
	return e.rec, nil
}

// List returns copies of matching records ordered by due time, then insertion order
func (s *Store[T, P]) List(_ context.Context, filter storage.Filter) ([]T, error) {
	s.mu.RLock()
	matched := make([]*entry[T], 0, len(s.records))
	for _, e := range s.records {
		p := P(&e.rec)
		if filter.Status != "" && p.State() != filter.Status {
			continue
		}
		if filter.OwnerID != "" && p.Owner() != filter.OwnerID {
			continue
		}
		cp := *e
		matched = append(matched, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, k int) bool {
		di, dk := P(&matched[i].rec).Due(), P(&matched[k].rec).Due()
		if !di.Equal(dk) {
			return di.Before(dk)
		}
		return matched[i].seq < matched[k].seq
	})

	result := make([]T, len(matched))
	for i, e := range matched {
		result[i] = e.rec
	}
	return result, nil
}

// Update applies mutate to a working copy and commits it only when mutate succeeds
func (s *Store[T, P]) Update(_ context.Context, id string, mutate func(*T) error) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	e, ok := s.records[id]
	if !ok {
		return zero, domain.ErrNotFound
	}

	working := e.rec
	if err := mutate(&working); err != nil {
		return zero, err
	}
	P(&working).Stamp(s.now())
	e.rec = working
	return working, nil
}
