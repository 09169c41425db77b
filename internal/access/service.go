// Package access decides administrator privilege and keeps presence flags.
package access

import (
	"context"
	"errors"

	"github.com/angelmondragon/kiko-social-backend/internal/identity"
	"github.com/angelmondragon/kiko-social-backend/internal/profiles"
	pkgerrors "github.com/angelmondragon/kiko-social-backend/pkg/errors"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
	"github.com/angelmondragon/kiko-social-backend/pkg/metrics"
	"github.com/angelmondragon/kiko-social-backend/pkg/store"
)

// ServiceParams groups dependencies for the access service.
type ServiceParams struct {
	Store    store.Store
	Profiles profiles.Service
	Logger   *logger.Logger
	Metrics  *metrics.FeedMetrics
}

// Service resolves privilege and presence for principals.
type Service interface {
	// IsAdministrator is fail-closed: an absent record or a failed read is
	// reported as false.
	IsAdministrator(ctx context.Context, principal identity.Principal) bool
	// RequireAdministrator returns a FORBIDDEN error for non-administrators.
	RequireAdministrator(ctx context.Context, principal identity.Principal) error
	// SetPresence is best effort; failures are logged and dropped.
	SetPresence(ctx context.Context, key identity.Key, online bool)
}

type service struct {
	store    store.Store
	profiles profiles.Service
	logg     *logger.Logger
	metrics  *metrics.FeedMetrics
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record store is required")
	}
	if params.Profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile service is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		store:    params.Store,
		profiles: params.Profiles,
		logg:     logg,
		metrics:  params.Metrics,
	}, nil
}

func (s *service) IsAdministrator(ctx context.Context, principal identity.Principal) bool {
	key := principal.Key()
	if key == "" {
		return false
	}
	view, err := s.profiles.Lookup(ctx, key)
	if err != nil {
		if !errors.Is(err, profiles.ErrNotFound) {
			s.logg.Error(s.logg.WithPrincipal(ctx, key.String()), "access.is_admin.resolve_failed", err)
		}
		return false
	}
	return view.IsAdmin()
}

func (s *service) RequireAdministrator(ctx context.Context, principal identity.Principal) error {
	if principal.IsZero() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !s.IsAdministrator(ctx, principal) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "administrator role required")
	}
	return nil
}

func (s *service) SetPresence(ctx context.Context, key identity.Key, online bool) {
	if !store.IsSegment(key.String()) {
		return
	}
	if err := s.store.Update(ctx, store.UserStatusPath(key.String()), profiles.PresenceUpdate(online)); err != nil {
		s.metrics.IncStoreError("set_presence")
		s.logg.Warn(s.logg.WithProfileKey(ctx, key.String()), "access.presence.write_failed: "+err.Error())
	}
}
