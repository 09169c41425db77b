package session

import (
	"context"
	"testing"

	"github.com/angelmondragon/kiko-social-backend/internal/access"
	"github.com/angelmondragon/kiko-social-backend/internal/identity"
	"github.com/angelmondragon/kiko-social-backend/internal/profiles"
	"github.com/angelmondragon/kiko-social-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/kiko-social-backend/pkg/errors"
	"github.com/angelmondragon/kiko-social-backend/pkg/store"
	"github.com/angelmondragon/kiko-social-backend/pkg/store/memory"
)

func buildTestService(t *testing.T, st store.Store) Service {
	t.Helper()
	profileSvc, err := profiles.NewService(profiles.ServiceParams{Store: st, Avatars: profiles.NewAvatars(config.AvatarConfig{})})
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	accessSvc, err := access.NewService(access.ServiceParams{Store: st, Profiles: profileSvc})
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	svc, err := NewService(ServiceParams{Access: accessSvc, Profiles: profileSvc})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func TestSignInMarksOnlineAndResolvesProfile(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	_ = st.Set(ctx, "users/root@kiko.dev", store.Record{"role": "admin", "profile": store.Record{"name": "Root"}})
	svc := buildTestService(t, st)

	state, err := svc.SignIn(ctx, identity.Principal{Email: "Root@Kiko.dev", DisplayName: "Root"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if state.Key != "root@kiko.dev" || !state.IsAdmin || !state.ProfileFound {
		t.Fatalf("unexpected state %+v", state)
	}
	if !state.Profile.IsOnline {
		t.Fatal("expected presence written before the profile was read")
	}

	if err := svc.SignOut(ctx, identity.Principal{Email: "root@kiko.dev"}); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	status, _, _ := st.Get(ctx, store.UserStatusPath("root@kiko.dev"))
	if online, _ := status.Bool("online"); online {
		t.Fatal("expected offline after sign out")
	}
}

func TestSignInUnknownUserUsesFallback(t *testing.T) {
	svc := buildTestService(t, memory.New())

	state, err := svc.SignIn(context.Background(), identity.Principal{Email: "new@kiko.dev"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if state.IsAdmin {
		t.Fatal("unknown users are never administrators")
	}
	// presence created a status-only record, which resolves as a legacy profile
	if state.Profile.Key != "new@kiko.dev" {
		t.Fatalf("unexpected profile %+v", state.Profile)
	}
}

func TestSignInRequiresPrincipal(t *testing.T) {
	svc := buildTestService(t, memory.New())
	if _, err := svc.SignIn(context.Background(), identity.Principal{}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := svc.SignOut(context.Background(), identity.Principal{Email: "  "}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
