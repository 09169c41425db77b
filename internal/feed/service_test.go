package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/kiko-social-backend/internal/access"
	"github.com/angelmondragon/kiko-social-backend/internal/identity"
	"github.com/angelmondragon/kiko-social-backend/internal/profiles"
	"github.com/angelmondragon/kiko-social-backend/pkg/config"
	"github.com/angelmondragon/kiko-social-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kiko-social-backend/pkg/errors"
	"github.com/angelmondragon/kiko-social-backend/pkg/store"
	"github.com/angelmondragon/kiko-social-backend/pkg/store/memory"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store *memory.Store
	svc   Service
}

func newTestEnv(t *testing.T, cfg config.FeedConfig) *testEnv {
	t.Helper()
	clock := func() time.Time { return testNow }
	st := memory.New(memory.WithClock(clock))

	profileSvc, err := profiles.NewService(profiles.ServiceParams{
		Store:   st,
		Avatars: profiles.NewAvatars(config.AvatarConfig{}),
	})
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	accessSvc, err := access.NewService(access.ServiceParams{Store: st, Profiles: profileSvc})
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Store:    st,
		Profiles: profileSvc,
		Access:   accessSvc,
		Config:   cfg,
		Clock:    clock,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return &testEnv{store: st, svc: svc}
}

func (e *testEnv) seedPost(t *testing.T, id string, rec store.Record) {
	t.Helper()
	if err := e.store.Set(context.Background(), store.PostPath(id), rec); err != nil {
		t.Fatalf("seed post %s: %v", id, err)
	}
}

func postIDs(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Post.ID
	}
	return out
}

func equalIDs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func ms(t time.Time) int64 { return t.UnixMilli() }

func TestLoadWindowIsNewestFirst(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	env.seedPost(t, "t1", store.Record{"id": "t1", "authorId": "ana@kiko.dev", "content": "one", "timestamp": ms(testNow.Add(-3 * time.Hour))})
	env.seedPost(t, "t3", store.Record{"id": "t3", "authorId": "ana@kiko.dev", "content": "three", "timestamp": ms(testNow.Add(-1 * time.Hour))})
	env.seedPost(t, "t2", store.Record{"id": "t2", "authorId": "ana@kiko.dev", "content": "two", "timestamp": ms(testNow.Add(-2 * time.Hour))})

	entries, err := env.svc.Load(context.Background(), 2)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ids := postIDs(entries); !equalIDs(ids, "t3", "t2") {
		t.Fatalf("expected [t3 t2], got %v", ids)
	}
	if entries[0].RelativeAge != "1h ago" {
		t.Fatalf("unexpected relative age %q", entries[0].RelativeAge)
	}
}

func TestLoadFiltersInactiveAndForeignKinds(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	env.seedPost(t, "a", store.Record{"timestamp": int64(1), "content": "legacy, no kind"})
	env.seedPost(t, "b", store.Record{"timestamp": int64(2), "isActive": false, "kind": "social_post"})
	env.seedPost(t, "c", store.Record{"timestamp": int64(3), "kind": "chat_message"})
	env.seedPost(t, "d", store.Record{"timestamp": int64(4), "kind": "social_post", "isActive": true})

	entries, err := env.svc.Load(context.Background(), 10)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ids := postIDs(entries); !equalIDs(ids, "d", "a") {
		t.Fatalf("expected [d a], got %v", ids)
	}
	for _, entry := range entries {
		if !entry.Post.IsActive {
			t.Fatalf("inactive post leaked: %+v", entry.Post)
		}
		if entry.Post.Kind != enums.PostKindSocial {
			t.Fatalf("foreign kind leaked: %+v", entry.Post)
		}
	}
}

func TestLoadWindowIsAHardCutoff(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	env.seedPost(t, "old", store.Record{"timestamp": int64(1)})
	env.seedPost(t, "hidden", store.Record{"timestamp": int64(2), "isActive": false})

	entries, err := env.svc.Load(context.Background(), 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("older posts must not be merged in, got %v", postIDs(entries))
	}
}

func TestLoadEmptyStore(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	entries, err := env.svc.Load(context.Background(), 5)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", entries)
	}
}

func TestLoadStoreFailureAborts(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	env.seedPost(t, "a", store.Record{"timestamp": int64(1)})
	env.store.FailWith(errors.New("connection refused"))

	entries, err := env.svc.Load(context.Background(), 5)
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if entries != nil {
		t.Fatalf("expected no partial result, got %v", entries)
	}
}

func TestLoadResolvesAuthorsWithFallback(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	ctx := context.Background()
	_ = env.store.Set(ctx, "users/ana@kiko.dev", store.Record{"profile": store.Record{"name": "Ana"}})
	env.seedPost(t, "a", store.Record{"timestamp": int64(1), "authorId": "ana@kiko.dev", "content": "Hi **all** #Go"})
	env.seedPost(t, "b", store.Record{"timestamp": int64(2), "authorId": "gone@kiko.dev"})
	env.seedPost(t, "c", store.Record{"timestamp": int64(3), "authorId": "gone@kiko.dev"})

	entries, err := env.svc.Load(ctx, 10)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Author != entries[1].Author {
		t.Fatal("fallback authors must render identically")
	}
	if entries[0].Author.Name != "gone@kiko.dev" {
		t.Fatalf("expected fallback author, got %+v", entries[0].Author)
	}
	ana := entries[2]
	if ana.Author.Name != "Ana" || ana.Author.PostCount != 1 {
		t.Fatalf("unexpected author %+v", ana.Author)
	}
	if len(ana.Hashtags) != 1 || ana.Hashtags[0] != "go" {
		t.Fatalf("unexpected hashtags %v", ana.Hashtags)
	}
	if len(ana.Spans) == 0 {
		t.Fatal("expected formatted spans")
	}
}

func TestLoadClampsWindow(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{DefaultWindow: 2, MaxWindow: 3})
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		env.seedPost(t, id, store.Record{"timestamp": int64(i + 1)})
	}

	entries, _ := env.svc.Load(context.Background(), 0)
	if ids := postIDs(entries); !equalIDs(ids, "e", "d") {
		t.Fatalf("default window: got %v", ids)
	}
	entries, _ = env.svc.Load(context.Background(), 100)
	if ids := postIDs(entries); !equalIDs(ids, "e", "d", "c") {
		t.Fatalf("max window: got %v", ids)
	}
}

func TestCreatePostThenLoadShowsItFirst(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	ctx := context.Background()
	env.seedPost(t, "older", store.Record{"timestamp": ms(testNow.Add(-time.Minute))})

	principal := identity.Principal{Email: " Ana@Kiko.dev", DisplayName: "Ana"}
	post, err := env.svc.CreatePost(ctx, principal, CreatePostInput{Content: "  Hello #Go and #go  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if post.AuthorID != "ana@kiko.dev" || post.AuthorName != "Ana" {
		t.Fatalf("unexpected author fields %+v", post)
	}
	if post.Content != "Hello #Go and #go" || !post.IsActive || post.Kind != enums.PostKindSocial {
		t.Fatalf("unexpected post %+v", post)
	}
	if post.Timestamp != ms(testNow) {
		t.Fatalf("expected server timestamp, got %d", post.Timestamp)
	}
	if len(post.Hashtags) != 2 || post.Hashtags[0] != "go" || post.Hashtags[1] != "go" {
		t.Fatalf("unexpected hashtags %v", post.Hashtags)
	}

	entries, err := env.svc.Load(ctx, 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 1 || entries[0].Post.ID != post.ID {
		t.Fatalf("expected new post first, got %v", postIDs(entries))
	}
	if entries[0].RelativeAge != "Just now" {
		t.Fatalf("unexpected age %q", entries[0].RelativeAge)
	}

	stored, _, _ := env.store.Get(ctx, store.PostPath(post.ID))
	if stored.String("id") != post.ID || stored.Int64("likes") != 0 || stored.String("kind") != "social_post" {
		t.Fatalf("unexpected stored record %+v", stored)
	}
}

func TestCreatePostValidation(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{MaxPostLength: 5})
	ctx := context.Background()
	principal := identity.Principal{Email: "ana@kiko.dev"}

	// Validation runs before any store call, so a failing store is never reached.
	env.store.FailWith(errors.New("must not be called"))

	if _, err := env.svc.CreatePost(ctx, principal, CreatePostInput{Content: "   "}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for blank body, got %v", err)
	}
	if _, err := env.svc.CreatePost(ctx, principal, CreatePostInput{Content: "toolong"}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for long body, got %v", err)
	}
	if _, err := env.svc.CreatePost(ctx, identity.Principal{}, CreatePostInput{Content: "hi"}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestCreatePostStoreFailure(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	env.store.FailWith(errors.New("down"))

	_, err := env.svc.CreatePost(context.Background(), identity.Principal{Email: "ana@kiko.dev"}, CreatePostInput{Content: "hi"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestDeactivate(t *testing.T) {
	env := newTestEnv(t, config.FeedConfig{})
	ctx := context.Background()
	_ = env.store.Set(ctx, "users/root@kiko.dev", store.Record{"role": "admin"})
	env.seedPost(t, "p1", store.Record{"authorId": "ana@kiko.dev", "timestamp": int64(1)})
	env.seedPost(t, "p2", store.Record{"authorId": "ana@kiko.dev", "timestamp": int64(2)})
	env.seedPost(t, "chat", store.Record{"authorId": "ana@kiko.dev", "timestamp": int64(3), "kind": "chat_message"})

	bo := identity.Principal{Email: "bo@kiko.dev"}
	if err := env.svc.Deactivate(ctx, bo, "p1"); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for non-author, got %v", err)
	}
	if err := env.svc.Deactivate(ctx, identity.Principal{Email: "ANA@kiko.dev"}, "p1"); err != nil {
		t.Fatalf("author deactivate: %v", err)
	}
	if err := env.svc.Deactivate(ctx, identity.Principal{Email: "ana@kiko.dev"}, "p1"); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if err := env.svc.Deactivate(ctx, identity.Principal{Email: "root@kiko.dev"}, "p2"); err != nil {
		t.Fatalf("admin deactivate: %v", err)
	}
	if err := env.svc.Deactivate(ctx, bo, "missing"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := env.svc.Deactivate(ctx, identity.Principal{Email: "ana@kiko.dev"}, "chat"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for chat record, got %v", err)
	}

	entries, _ := env.svc.Load(ctx, 10)
	if len(entries) != 0 {
		t.Fatalf("deactivated posts must leave the feed, got %v", postIDs(entries))
	}
	rec, ok, _ := env.store.Get(ctx, "posts/p1")
	if !ok || rec.Int64("timestamp") != 1 {
		t.Fatal("soft delete must keep the record")
	}
}
