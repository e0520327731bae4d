// Package memory implements a storage adapter that keeps applied migrations in
// process memory.
package memory

import (
	"context"
	"slices"
	"sync"

	"go.hackfix.me/ratchet/storage"
)

// Storage keeps applied migration IDs in memory.
type Storage struct {
	mx      sync.RWMutex
	ids     []string
	failErr error // to simulate errors
}

var _ storage.Storage = (*Storage)(nil)

// New returns a new empty Storage with optional initial IDs.
func New(ids ...string) *Storage {
	return &Storage{ids: slices.Clone(ids)}
}

// Constructor is the storage.Constructor of this adapter.
func Constructor(_ storage.Options) (storage.Storage, error) {
	return New(), nil
}

// Executed implements the storage.Storage interface.
func (s *Storage) Executed(_ context.Context) ([]string, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	return slices.Clone(s.ids), nil
}

// Log implements the storage.Storage interface.
func (s *Storage) Log(_ context.Context, id string) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	if !slices.Contains(s.ids, id) {
		s.ids = append(s.ids, id)
	}
	return nil
}

// Unlog implements the storage.Storage interface.
func (s *Storage) Unlog(_ context.Context, id string) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.ids = slices.DeleteFunc(s.ids, func(v string) bool { return v == id })
	return nil
}

// SetFailError makes all subsequent operations fail with err.
func (s *Storage) SetFailError(err error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.failErr = err
}
