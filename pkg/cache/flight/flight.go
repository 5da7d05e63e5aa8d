// Package flight wraps a cache store so that concurrent GetOrCreate calls for
// the same key within one process share a single producer invocation. The
// core store deliberately provides no such guarantee; this is the layered
// per-key serialization for callers that need it. Cross-process races remain
// outside its reach.
package flight

import (
	"golang.org/x/sync/singleflight"

	"github.com/glorpus-work/fcache/pkg/cache"
)

// Store decorates a cache.Store with per-key producer deduplication.
type Store struct {
	cache.Store

	group singleflight.Group
}

// New wraps inner with per-key GetOrCreate deduplication.
func New(inner cache.Store) *Store {
	return &Store{Store: inner}
}

// GetOrCreate coalesces concurrent calls for the same key: only one producer
// runs and every caller receives its result (or its error).
func (s *Store) GetOrCreate(key string, conds cache.Conditions, produce cache.Producer) ([]byte, error) {
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.Store.GetOrCreate(key, conds, produce)
	})
	if err != nil {
		return nil, err
	}
	data, _ := v.([]byte)
	return data, nil
}

// GetOrCreatePath coalesces the production step the same way as GetOrCreate
// before resolving the entry's path.
func (s *Store) GetOrCreatePath(key string, conds cache.Conditions, produce cache.Producer, actual bool) (string, error) {
	if _, err := s.GetOrCreate(key, conds, produce); err != nil {
		return "", err
	}
	if actual {
		return s.Store.ActualPath(key), nil
	}
	return s.Store.Path(key), nil
}
