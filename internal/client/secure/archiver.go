package secure

import (
	"encoding/json"
	"fmt"
)

// Archiver persists a single serializable value under a fixed store key.
// Keys are part of the on-disk contract and must stay stable across
// versions.
type Archiver[T any] struct {
	store *Store
	key   string
}

// NewArchiver binds an archiver to the given store key.
func NewArchiver[T any](store *Store, key string) *Archiver[T] {
	return &Archiver[T]{store: store, key: key}
}

// Save persists v, replacing any previous value.
func (a *Archiver[T]) Save(v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode archive %q: %w", a.key, err)
	}
	return a.store.Set(a.key, data)
}

// Load returns the last saved value. The bool is false when nothing was
// saved or the stored bytes no longer decode.
func (a *Archiver[T]) Load() (T, bool) {
	var v T
	data, ok := a.store.Get(a.key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false
	}
	return v, true
}

// Clear removes the archived value.
func (a *Archiver[T]) Clear() error {
	return a.store.Set(a.key, nil)
}
