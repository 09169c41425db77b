// Package session handles the identity provider's sign-in and sign-out
// transitions. Session state lives with the caller; the engine stays stateless.
package session

import (
	"context"

	"github.com/angelmondragon/kiko-social-backend/internal/access"
	"github.com/angelmondragon/kiko-social-backend/internal/identity"
	"github.com/angelmondragon/kiko-social-backend/internal/profiles"
	pkgerrors "github.com/angelmondragon/kiko-social-backend/pkg/errors"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
)

// State is returned to the client on sign-in.
type State struct {
	Key          identity.Key  `json:"key"`
	Email        string        `json:"email"`
	DisplayName  string        `json:"display_name"`
	IsAdmin      bool          `json:"is_admin"`
	Profile      profiles.View `json:"profile"`
	ProfileFound bool          `json:"profile_found"`
}

type ServiceParams struct {
	Access   access.Service
	Profiles profiles.Service
	Logger   *logger.Logger
}

type Service interface {
	SignIn(ctx context.Context, principal identity.Principal) (State, error)
	SignOut(ctx context.Context, principal identity.Principal) error
}

type service struct {
	access   access.Service
	profiles profiles.Service
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Access == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access service is required")
	}
	if params.Profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile service is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{access: params.Access, profiles: params.Profiles, logg: logg}, nil
}

// SignIn checks privilege, marks the principal online and loads their profile.
func (s *service) SignIn(ctx context.Context, principal identity.Principal) (State, error) {
	key := principal.Key()
	if key == "" {
		return State{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	ctx = s.logg.WithPrincipal(ctx, key.String())

	isAdmin := s.access.IsAdministrator(ctx, principal)
	s.access.SetPresence(ctx, key, true)
	view, found := s.profiles.ResolveOrFallback(ctx, key)

	s.logg.Info(ctx, "session.sign_in")
	return State{
		Key:          key,
		Email:        principal.Email,
		DisplayName:  principal.DisplayName,
		IsAdmin:      isAdmin,
		Profile:      view,
		ProfileFound: found,
	}, nil
}

// SignOut marks the principal offline.
func (s *service) SignOut(ctx context.Context, principal identity.Principal) error {
	key := principal.Key()
	if key == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	ctx = s.logg.WithPrincipal(ctx, key.String())
	s.access.SetPresence(ctx, key, false)
	s.logg.Info(ctx, "session.sign_out")
	return nil
}
