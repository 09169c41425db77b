package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	allowed, count, err := client.FixedWindowAllow(ctx, "posts:ana@kiko.dev", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected allowed on first request")
	}
	if count != 1 {
		t.Fatalf("expected counter 1 got %d", count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expected expire for first increment")
	}

	allowed, count, err = client.FixedWindowAllow(ctx, "posts:ana@kiko.dev", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || count != 2 {
		t.Fatalf("unexpected second call state allowed=%v count=%d", allowed, count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expire should not be set again")
	}

	allowed, _, err = client.FixedWindowAllow(ctx, "posts:ana@kiko.dev", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("expected limit reached")
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.RateLimitKey("scope"); got != "kiko:rate_limit:scope" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := client.docKey("users", "ana@kiko.dev"); got != "kiko:doc:users:ana@kiko.dev" {
		t.Fatalf("unexpected doc key %s", got)
	}

	scoped := &Client{namespace: "staging"}
	if got := scoped.indexKey("posts", "timestamp"); got != "staging:idx:posts:timestamp" {
		t.Fatalf("unexpected index key %s", got)
	}
	if got := scoped.membersKey(" posts "); got != "staging:members:posts" {
		t.Fatalf("members key should trim parts, got %s", got)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close without raw client should be a no-op, got %v", err)
	}
	if err := client.withWatch(context.Background(), func(docTx) error { return nil }, "k"); err == nil {
		t.Fatal("expected error from uninitialized watch")
	}
}

func TestWithWatchRetriesConflicts(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock, watch: mock.watch}

	mock.conflicts = 2
	runs := 0
	err := client.withWatch(ctx, func(docTx) error {
		runs++
		return nil
	}, "kiko:doc:users:ana@kiko.dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.watchCalls != 3 || runs != 1 {
		t.Fatalf("expected 3 attempts and 1 run, got %d and %d", mock.watchCalls, runs)
	}

	mock.conflicts = maxWatchAttempts
	err = client.withWatch(ctx, func(docTx) error { return nil }, "kiko:doc:users:ana@kiko.dev")
	if !errors.Is(err, redis.TxFailedErr) {
		t.Fatalf("expected TxFailedErr after exhausting retries, got %v", err)
	}
}

type mockCmdable struct {
	now         time.Time
	data        map[string]string
	incr        map[string]int64
	sets        map[string]map[string]struct{}
	zsets       map[string]map[string]float64
	expireCalls []expireCall
	failWith    error
	// conflicts is the number of upcoming watch runs that abort as if a
	// watched key changed before EXEC.
	conflicts    int
	watchCalls   int
	watchedKeys  []string
	pendingWrite func()
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		now:   time.UnixMilli(1_700_000_000_000),
		data:  make(map[string]string),
		incr:  make(map[string]int64),
		sets:  make(map[string]map[string]struct{}),
		zsets: make(map[string]map[string]float64),
	}
}

func (m *mockCmdable) watch(ctx context.Context, fn func(docTx) error, keys ...string) error {
	m.watchCalls++
	m.watchedKeys = append(m.watchedKeys, keys...)
	if m.pendingWrite != nil {
		write := m.pendingWrite
		m.pendingWrite = nil
		write()
	}
	if m.conflicts > 0 {
		m.conflicts--
		return redis.TxFailedErr
	}
	return fn(m)
}

func (m *mockCmdable) Exec(ctx context.Context, fn func(docWriter) error) error {
	return fn(m)
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", m.failWith)
}

func (m *mockCmdable) Time(context.Context) *redis.TimeCmd {
	return redis.NewTimeCmdResult(m.now, m.failWith)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if m.failWith != nil {
		return redis.NewStatusResult("", m.failWith)
	}
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	default:
		m.data[key] = fmt.Sprint(v)
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.failWith != nil {
		return redis.NewStringResult("", m.failWith)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	if m.failWith != nil {
		return redis.NewSliceResult(nil, m.failWith)
	}
	out := make([]any, len(keys))
	for i, key := range keys {
		if v, ok := m.data[key]; ok {
			out[i] = v
		}
	}
	return redis.NewSliceResult(out, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd {
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, member := range members {
		set[fmt.Sprint(member)] = struct{}{}
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (m *mockCmdable) SRem(ctx context.Context, key string, members ...any) *redis.IntCmd {
	for _, member := range members {
		delete(m.sets[key], fmt.Sprint(member))
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (m *mockCmdable) SMembers(ctx context.Context, key string) *redis.StringSliceCmd {
	if m.failWith != nil {
		return redis.NewStringSliceResult(nil, m.failWith)
	}
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return redis.NewStringSliceResult(out, nil)
}

func (m *mockCmdable) ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd {
	zset, ok := m.zsets[key]
	if !ok {
		zset = make(map[string]float64)
		m.zsets[key] = zset
	}
	for _, z := range members {
		zset[fmt.Sprint(z.Member)] = z.Score
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (m *mockCmdable) ZRem(ctx context.Context, key string, members ...any) *redis.IntCmd {
	for _, member := range members {
		delete(m.zsets[key], fmt.Sprint(member))
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

// ZRange mirrors redis ordering: score ascending, then member lexically.
func (m *mockCmdable) ZRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	if m.failWith != nil {
		return redis.NewStringSliceResult(nil, m.failWith)
	}
	zset := m.zsets[key]
	members := make([]string, 0, len(zset))
	for member := range zset {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		if zset[members[i]] != zset[members[j]] {
			return zset[members[i]] < zset[members[j]]
		}
		return members[i] < members[j]
	})

	n := int64(len(members))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return redis.NewStringSliceResult([]string{}, nil)
	}
	return redis.NewStringSliceResult(members[start:stop+1], nil)
}
