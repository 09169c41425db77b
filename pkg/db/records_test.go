package db

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/kiko-social-backend/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecordStore(t *testing.T) *RecordStore {
	t.Helper()
	s := NewRecordStore(&Client{conn: newTestDB(t)}, nil)
	s.clock = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return s
}

func TestRecordStoreSetGet(t *testing.T) {
	ctx := context.Background()
	s := newTestRecordStore(t)

	require.NoError(t, s.Set(ctx, "posts/p1", store.Record{
		"content":   "hello #go",
		"timestamp": store.ServerTimestamp,
		"isActive":  true,
	}))

	rec, ok, err := s.Get(ctx, "posts/p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1_700_000_000_000), rec["timestamp"])
	assert.Equal(t, "hello #go", rec.String("content"))

	_, ok, err = s.Get(ctx, "posts/missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordStoreUpdateMergesNestedFields(t *testing.T) {
	ctx := context.Background()
	s := newTestRecordStore(t)

	require.NoError(t, s.Set(ctx, "users/ana@kiko.dev", store.Record{
		"name":   "Ana",
		"status": store.Record{"typing": false},
	}))
	require.NoError(t, s.Update(ctx, "users/ana@kiko.dev/status", store.Record{
		"online":   true,
		"lastSeen": store.ServerTimestamp,
	}))

	status, ok, err := s.Get(ctx, "users/ana@kiko.dev/status")
	require.NoError(t, err)
	require.True(t, ok)
	online, _ := status.Bool("online")
	assert.True(t, online)
	assert.Equal(t, int64(1_700_000_000_000), status.Int64("lastSeen"))
	_, hasTyping := status.Bool("typing")
	assert.True(t, hasTyping)

	whole, _, err := s.Get(ctx, "users/ana@kiko.dev")
	require.NoError(t, err)
	assert.Equal(t, "Ana", whole.String("name"))

	require.NoError(t, s.Update(ctx, "users/bo@kiko.dev/status", store.Record{"online": false}))
	_, ok, err = s.Get(ctx, "users/bo@kiko.dev")
	require.NoError(t, err)
	assert.True(t, ok, "update creates missing documents")
}

func TestRecordStoreQueryOrderedBounded(t *testing.T) {
	ctx := context.Background()
	s := newTestRecordStore(t)

	for key, ts := range map[string]any{"a": int64(10), "b": int64(30), "c": int64(20), "d": int64(30)} {
		require.NoError(t, s.Set(ctx, store.PostPath(key), store.Record{"timestamp": ts}))
	}
	require.NoError(t, s.Set(ctx, store.PostPath("legacy"), store.Record{"content": "no timestamp"}))

	window, err := s.QueryOrderedBounded(ctx, store.PathPosts, store.FieldTimestamp, 3)
	require.NoError(t, err)
	keys := make([]string, 0, len(window))
	for _, e := range window {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"c", "b", "d"}, keys)

	all, err := s.QueryOrderedBounded(ctx, store.PathPosts, store.FieldTimestamp, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "legacy", all[0].Key, "records without the order field sort first")
}

func TestRecordStoreCollectionGetAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestRecordStore(t)

	require.NoError(t, s.Set(ctx, "users/a", store.Record{"name": "A"}))
	require.NoError(t, s.Set(ctx, "users/b", store.Record{"name": "B"}))

	users, ok, err := s.Get(ctx, store.PathUsers)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, users, 2)

	require.NoError(t, s.Set(ctx, "users/a", nil))
	users, _, err = s.Get(ctx, store.PathUsers)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	assert.ErrorIs(t, s.Set(ctx, "users", store.Record{}), store.ErrInvalidPath)
}
