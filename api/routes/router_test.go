package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/kiko-social-backend/internal/access"
	"github.com/angelmondragon/kiko-social-backend/internal/analytics"
	"github.com/angelmondragon/kiko-social-backend/internal/feed"
	"github.com/angelmondragon/kiko-social-backend/internal/profiles"
	"github.com/angelmondragon/kiko-social-backend/internal/session"
	"github.com/angelmondragon/kiko-social-backend/internal/users"
	pkgAuth "github.com/angelmondragon/kiko-social-backend/pkg/auth"
	"github.com/angelmondragon/kiko-social-backend/pkg/config"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
	"github.com/angelmondragon/kiko-social-backend/pkg/metrics"
	"github.com/angelmondragon/kiko-social-backend/pkg/store"
	"github.com/angelmondragon/kiko-social-backend/pkg/store/memory"
)

func testConfig() *config.Config {
	return &config.Config{
		App:   config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		Store: config.StoreConfig{Backend: config.StoreBackendMemory},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "kiko-test",
			ExpirationMinutes: 5,
		},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    8,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     8,
			ArgonKeyLen:      16,
		},
		Feed: config.FeedConfig{DefaultWindow: 20, MaxWindow: 50, MaxPostLength: 500},
	}
}

func buildTestRouter(t *testing.T) (http.Handler, *config.Config, *memory.Store) {
	t.Helper()
	cfg := testConfig()
	st := memory.New()
	if err := st.Set(context.Background(), store.UserPath("root@kiko.dev"), store.Record{"name": "Root", "role": "admin"}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	reg := prometheus.NewRegistry()
	feedMetrics := metrics.NewFeedMetrics(reg)
	logg := logger.Nop()

	profileSvc, err := profiles.NewService(profiles.ServiceParams{Store: st, Avatars: profiles.NewAvatars(cfg.Avatar), Logger: logg, Metrics: feedMetrics})
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	accessSvc, err := access.NewService(access.ServiceParams{Store: st, Profiles: profileSvc, Logger: logg, Metrics: feedMetrics})
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	feedSvc, err := feed.NewService(feed.ServiceParams{Store: st, Profiles: profileSvc, Access: accessSvc, Config: cfg.Feed, Logger: logg, Metrics: feedMetrics})
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	sessionSvc, err := session.NewService(session.ServiceParams{Access: accessSvc, Profiles: profileSvc, Logger: logg})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	usersSvc, err := users.NewService(users.ServiceParams{Repo: users.NewRepository(st), Access: accessSvc, Profiles: profileSvc, PasswordConfig: cfg.Password, Logger: logg})
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	analyticsSvc, err := analytics.NewService(analytics.ServiceParams{Store: st, Access: accessSvc, Profiles: profileSvc, Logger: logg})
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}

	router := NewRouter(cfg, logg, st, nil, reg, Services{
		Access:    accessSvc,
		Profiles:  profileSvc,
		Feed:      feedSvc,
		Session:   sessionSvc,
		Users:     usersSvc,
		Analytics: analyticsSvc,
	})
	return router, cfg, st
}

func mintTestToken(t *testing.T, cfg *config.Config, email string) string {
	t.Helper()
	token, err := pkgAuth.MintPrincipalToken(cfg.JWT, time.Now(), pkgAuth.PrincipalPayload{Email: email})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func doRequest(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router, _, _ := buildTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		if rec := doRequest(router, http.MethodGet, path, "", ""); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	router, _, _ := buildTestRouter(t)

	if rec := doRequest(router, http.MethodGet, "/api/v1/feed", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if rec := doRequest(router, http.MethodGet, "/api/admin/v1/users", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAdminRoutesRejectRegularUsers(t *testing.T) {
	router, cfg, _ := buildTestRouter(t)
	token := mintTestToken(t, cfg, "ana@kiko.dev")

	if rec := doRequest(router, http.MethodGet, "/api/admin/v1/analytics", token, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestAdminCreatesAndListsUsers(t *testing.T) {
	router, cfg, _ := buildTestRouter(t)
	token := mintTestToken(t, cfg, "Root@Kiko.dev")

	rec := doRequest(router, http.MethodPost, "/api/admin/v1/users", token, `{"email":"ana@kiko.dev","name":"Ana"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	var created users.CreatedUser
	decodeData(t, rec, &created)
	if created.Key != "ana@kiko.dev" || created.TempPassword == "" {
		t.Fatalf("unexpected created user %+v", created)
	}

	rec = doRequest(router, http.MethodPost, "/api/admin/v1/users", token, `{"email":"ana@kiko.dev","name":"Ana"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}

	rec = doRequest(router, http.MethodGet, "/api/admin/v1/users", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var list struct {
		Users []profiles.View `json:"users"`
	}
	decodeData(t, rec, &list)
	if len(list.Users) != 2 {
		t.Fatalf("expected 2 users got %d", len(list.Users))
	}
}

func TestPostLifecycle(t *testing.T) {
	router, cfg, _ := buildTestRouter(t)
	ana := mintTestToken(t, cfg, "ana@kiko.dev")
	bob := mintTestToken(t, cfg, "bob@kiko.dev")

	rec := doRequest(router, http.MethodPost, "/api/v1/session", ana, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("sign in: expected 200 got %d", rec.Code)
	}

	rec = doRequest(router, http.MethodPost, "/api/v1/posts", ana, `{"content":"**hello** #Go"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	var post feed.Post
	decodeData(t, rec, &post)
	if post.AuthorID != "ana@kiko.dev" || len(post.Hashtags) != 1 || post.Hashtags[0] != "go" {
		t.Fatalf("unexpected post %+v", post)
	}

	rec = doRequest(router, http.MethodGet, "/api/v1/feed?limit=5", bob, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("feed: expected 200 got %d", rec.Code)
	}
	var page struct {
		Entries []feed.Entry `json:"entries"`
	}
	decodeData(t, rec, &page)
	if len(page.Entries) != 1 || page.Entries[0].Post.ID != post.ID {
		t.Fatalf("unexpected feed %+v", page.Entries)
	}
	if !page.Entries[0].Author.IsOnline {
		t.Fatal("expected author to be online after sign in")
	}

	if rec := doRequest(router, http.MethodDelete, "/api/v1/posts/"+post.ID, bob, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign delete: expected 403 got %d", rec.Code)
	}
	if rec := doRequest(router, http.MethodDelete, "/api/v1/posts/"+post.ID, ana, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200 got %d", rec.Code)
	}
	if rec := doRequest(router, http.MethodDelete, "/api/v1/posts/"+post.ID, ana, ""); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("second delete: expected 422 got %d", rec.Code)
	}

	rec = doRequest(router, http.MethodGet, "/api/v1/feed", bob, "")
	page.Entries = nil
	decodeData(t, rec, &page)
	if len(page.Entries) != 0 {
		t.Fatalf("expected inactive post hidden, got %+v", page.Entries)
	}
}

func TestProfileLookupDoesNotReachIntoSubRecords(t *testing.T) {
	router, cfg, st := buildTestRouter(t)
	if err := st.Set(context.Background(), store.UserPath("ana@kiko.dev"), store.Record{
		"profile": store.Record{"name": "Ana", "email": "ana@kiko.dev"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	token := mintTestToken(t, cfg, "bob@kiko.dev")

	rec := doRequest(router, http.MethodGet, "/api/v1/profiles/ana@kiko.dev%2Fprofile", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var body struct {
		Profile profiles.View `json:"profile"`
		Found   bool          `json:"found"`
	}
	decodeData(t, rec, &body)
	if body.Found || body.Profile.Name == "Ana" {
		t.Fatalf("expected fallback view, got %+v", body)
	}
}

func TestProfileLookupFallsBack(t *testing.T) {
	router, cfg, _ := buildTestRouter(t)
	token := mintTestToken(t, cfg, "ana@kiko.dev")

	rec := doRequest(router, http.MethodGet, "/api/v1/profiles/ghost@kiko.dev", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var body struct {
		Profile profiles.View `json:"profile"`
		Found   bool          `json:"found"`
	}
	decodeData(t, rec, &body)
	if body.Found || body.Profile.Name != "ghost@kiko.dev" {
		t.Fatalf("unexpected fallback %+v", body)
	}
}
