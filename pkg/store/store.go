// Package store defines the contract the engine expects from the shared
// realtime record store and the helpers every adapter shares.
//
// The store is a tree of JSON-like records addressed by slash separated
// paths ("users/<key>/status"). Adapters live in pkg/redis, pkg/db and
// pkg/store/memory.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
)

var (
	// ErrNotRecord is returned by Get when the path holds a scalar leaf.
	ErrNotRecord = errors.New("store: path does not hold a record")
	// ErrInvalidPath rejects empty paths and writes to the root.
	ErrInvalidPath = errors.New("store: invalid path")
)

// Store is the remote record store consumed by the engine.
type Store interface {
	// Get returns the record at path; ok is false when nothing is stored there.
	Get(ctx context.Context, path string) (rec Record, ok bool, err error)
	// Set replaces the record at path.
	Set(ctx context.Context, path string, rec Record) error
	// Update merges the given fields into the record at path, creating it when absent.
	Update(ctx context.Context, path string, partial Record) error
	// Push reserves a new, unique, time-ordered child key under path.
	Push(ctx context.Context, path string) (string, error)
	// QueryOrderedBounded returns the last limit children of path ordered
	// ascending by orderField.
	QueryOrderedBounded(ctx context.Context, path, orderField string, limit int) ([]Entry, error)
}

// Pinger exposes the readiness surface of an adapter.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Entry pairs a child key with its record.
type Entry struct {
	Key    string
	Record Record
}

type sentinel string

// ServerTimestamp is replaced by the store's wall clock, in epoch milliseconds,
// when a record containing it is written.
const ServerTimestamp sentinel = ".sv:timestamp"

// Indexes maps a collection to the child field adapters keep ordered.
type Indexes map[string]string

// DefaultIndexes covers the single ordered query the engine issues.
func DefaultIndexes() Indexes {
	return Indexes{PathPosts: FieldTimestamp}
}

// FieldTimestamp is the post ordering field.
const FieldTimestamp = "timestamp"

// NewPushKey returns a UUIDv7 string. The v7 layout is time-ordered and
// monotonic within the process, so lexical order matches creation order.
func NewPushKey() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ResolveServerTimestamps deep-copies rec replacing every ServerTimestamp
// sentinel with nowMillis.
func ResolveServerTimestamps(rec Record, nowMillis int64) Record {
	if rec == nil {
		return nil
	}
	out, _ := resolveValue(rec, nowMillis).(Record)
	return out
}

func resolveValue(v any, now int64) any {
	switch t := v.(type) {
	case sentinel:
		if t == ServerTimestamp {
			return now
		}
		return string(t)
	case Record:
		out := make(Record, len(t))
		for k, child := range t {
			out[k] = resolveValue(child, now)
		}
		return out
	case map[string]any:
		out := make(Record, len(t))
		for k, child := range t {
			out[k] = resolveValue(child, now)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = resolveValue(child, now)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// OrderBounded sorts entries ascending by field (missing values first, ties
// broken by key) and keeps the last limit. Adapters without a native index use it.
func OrderBounded(entries []Entry, field string, limit int) []Entry {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		vi, oki := sorted[i].Record.Number(field)
		vj, okj := sorted[j].Record.Number(field)
		switch {
		case oki != okj:
			return !oki
		case oki && vi != vj:
			return vi < vj
		}
		return sorted[i].Key < sorted[j].Key
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}
	return sorted
}
