// Package profiles resolves stored user records, legacy or current schema,
// into one canonical view.
package profiles

import (
	"context"
	"errors"

	"github.com/angelmondragon/kiko-social-backend/internal/identity"
	pkgerrors "github.com/angelmondragon/kiko-social-backend/pkg/errors"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
	"github.com/angelmondragon/kiko-social-backend/pkg/metrics"
	"github.com/angelmondragon/kiko-social-backend/pkg/store"
)

// ErrNotFound reports that no record exists for a key. It is an expected
// outcome, handled by falling back, not a failure.
var ErrNotFound = errors.New("profile not found")

// ServiceParams groups dependencies for the profile service.
type ServiceParams struct {
	Store   store.Store
	Avatars Avatars
	Logger  *logger.Logger
	Metrics *metrics.FeedMetrics
}

// Service exposes profile resolution.
type Service interface {
	// Resolve returns ErrNotFound when no record is stored for key.
	Resolve(ctx context.Context, key identity.Key) (View, error)
	// Lookup is Resolve without the post scan; PostCount is left at zero.
	Lookup(ctx context.Context, key identity.Key) (View, error)
	// ResolveOrFallback never fails; found is false when the fallback was used.
	ResolveOrFallback(ctx context.Context, key identity.Key) (view View, found bool)
	Fallback(key identity.Key) View
	// FromRecord maps an already-loaded record, for callers that batch reads.
	FromRecord(key identity.Key, rec store.Record, postCount int) View
}

type service struct {
	store   store.Store
	avatars Avatars
	logg    *logger.Logger
	metrics *metrics.FeedMetrics
}

// NewService builds a profile service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record store is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		store:   params.Store,
		avatars: params.Avatars,
		logg:    logg,
		metrics: params.Metrics,
	}, nil
}

func (s *service) Lookup(ctx context.Context, key identity.Key) (View, error) {
	rec, err := s.load(ctx, key)
	if err != nil {
		return View{}, err
	}
	return s.avatars.FromRecord(key, rec, 0), nil
}

func (s *service) Resolve(ctx context.Context, key identity.Key) (View, error) {
	rec, err := s.load(ctx, key)
	if err != nil {
		return View{}, err
	}

	// Scans the whole posts collection; cost grows with total posts.
	posts, err := s.store.QueryOrderedBounded(ctx, store.PathPosts, store.FieldTimestamp, 0)
	if err != nil {
		s.metrics.IncStoreError("scan_posts")
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count posts")
	}

	s.logg.Debug(s.logg.WithProfileKey(ctx, key.String()), "profile.resolve: "+decodeRecord(rec).shape()+" schema")
	return s.avatars.FromRecord(key, rec, CountPosts(posts, key)), nil
}

func (s *service) load(ctx context.Context, key identity.Key) (store.Record, error) {
	if !store.IsSegment(key.String()) {
		return nil, ErrNotFound
	}
	rec, ok, err := s.store.Get(ctx, store.UserPath(key.String()))
	if err != nil {
		s.metrics.IncStoreError("get_profile")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *service) ResolveOrFallback(ctx context.Context, key identity.Key) (View, bool) {
	view, err := s.Resolve(ctx, key)
	if err == nil {
		return view, true
	}
	if errors.Is(err, ErrNotFound) {
		s.metrics.IncFallback(metrics.FallbackNotFound)
	} else {
		s.metrics.IncFallback(metrics.FallbackError)
		s.logg.Warn(s.logg.WithProfileKey(ctx, key.String()), "profile.resolve.fallback: "+err.Error())
	}
	return s.avatars.Fallback(key), false
}

func (s *service) Fallback(key identity.Key) View {
	return s.avatars.Fallback(key)
}

func (s *service) FromRecord(key identity.Key, rec store.Record, postCount int) View {
	return s.avatars.FromRecord(key, rec, postCount)
}
