// Package memory is an in-process record store used by tests and local
// development. It keeps the whole tree in one map guarded by a mutex.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/kiko-social-backend/pkg/store"
)

// Store implements store.Store over an in-memory tree.
type Store struct {
	mu    sync.RWMutex
	root  store.Record
	clock func() time.Time
	fail  error
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the clock used to resolve server timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{root: store.Record{}, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FailWith makes every subsequent call return err; nil restores normal behaviour.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fail
}

func (s *Store) Get(_ context.Context, path string) (store.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, false, s.fail
	}

	node, ok := s.lookup(store.Split(path))
	if !ok || node == nil {
		return nil, false, nil
	}
	rec, isRecord := asRecord(node)
	if !isRecord {
		return nil, false, fmt.Errorf("get %s: %w", path, store.ErrNotRecord)
	}
	return rec.Clone(), true, nil
}

func (s *Store) Set(_ context.Context, path string, rec store.Record) error {
	parts := store.Split(path)
	if len(parts) == 0 {
		return store.ErrInvalidPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}

	var value any
	if rec != nil {
		value = store.ResolveServerTimestamps(rec, s.now())
	}
	s.root.SetPath(parts, value)
	return nil
}

func (s *Store) Update(_ context.Context, path string, partial store.Record) error {
	parts := store.Split(path)
	if len(parts) == 0 {
		return store.ErrInvalidPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}

	resolved := store.ResolveServerTimestamps(partial, s.now())
	for field, value := range resolved {
		s.root.SetPath(append(append([]string(nil), parts...), store.Split(field)...), value)
	}
	return nil
}

func (s *Store) Push(_ context.Context, path string) (string, error) {
	if len(store.Split(path)) == 0 {
		return "", store.ErrInvalidPath
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return "", s.fail
	}
	return store.NewPushKey(), nil
}

func (s *Store) QueryOrderedBounded(_ context.Context, path, orderField string, limit int) ([]store.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}

	node, ok := s.lookup(store.Split(path))
	if !ok {
		return nil, nil
	}
	rec, isRecord := asRecord(node)
	if !isRecord {
		return nil, fmt.Errorf("query %s: %w", path, store.ErrNotRecord)
	}

	window := store.OrderBounded(rec.Children(), orderField, limit)
	out := make([]store.Entry, len(window))
	for i, entry := range window {
		out[i] = store.Entry{Key: entry.Key, Record: entry.Record.Clone()}
	}
	return out, nil
}

func (s *Store) now() int64 {
	return s.clock().UnixMilli()
}

func (s *Store) lookup(parts []string) (any, bool) {
	var node any = s.root
	for _, part := range parts {
		rec, ok := asRecord(node)
		if !ok {
			return nil, false
		}
		node, ok = rec[part]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

func asRecord(v any) (store.Record, bool) {
	switch t := v.(type) {
	case store.Record:
		return t, true
	case map[string]any:
		return store.Record(t), true
	}
	return nil, false
}
