// Package analytics computes the administrator dashboard summary from the
// users and posts collections.
package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kiko-social-backend/internal/access"
	"github.com/angelmondragon/kiko-social-backend/internal/identity"
	"github.com/angelmondragon/kiko-social-backend/internal/profiles"
	"github.com/angelmondragon/kiko-social-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kiko-social-backend/pkg/errors"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
	"github.com/angelmondragon/kiko-social-backend/pkg/store"
)

var hundred = decimal.NewFromInt(100)

// Summary is the dashboard snapshot. EngagementRate is the percentage of
// active posts with at least one like, comment or share, to one decimal.
type Summary struct {
	TotalUsers     int             `json:"total_users"`
	OnlineUsers    int             `json:"online_users"`
	ActivePosts    int             `json:"active_posts"`
	Interactions   int64           `json:"interactions"`
	EngagementRate decimal.Decimal `json:"engagement_rate"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

type ServiceParams struct {
	Store    store.Store
	Access   access.Service
	Profiles profiles.Service
	Logger   *logger.Logger
	Clock    func() time.Time
}

// Service provides the analytics summary.
type Service interface {
	Summary(ctx context.Context, caller identity.Principal) (Summary, error)
}

type service struct {
	store    store.Store
	access   access.Service
	profiles profiles.Service
	logg     *logger.Logger
	clock    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record store is required")
	}
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
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		store:    params.Store,
		access:   params.Access,
		profiles: params.Profiles,
		logg:     logg,
		clock:    clock,
	}, nil
}

func (s *service) Summary(ctx context.Context, caller identity.Principal) (Summary, error) {
	if err := s.access.RequireAdministrator(ctx, caller); err != nil {
		return Summary{}, err
	}

	users, _, err := s.store.Get(ctx, store.PathUsers)
	if err != nil {
		return Summary{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load users")
	}
	posts, err := s.store.QueryOrderedBounded(ctx, store.PathPosts, store.FieldTimestamp, 0)
	if err != nil {
		return Summary{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan posts")
	}

	out := Summary{GeneratedAt: s.clock().UTC()}
	for _, entry := range users.Children() {
		out.TotalUsers++
		if s.profiles.FromRecord(identity.Key(entry.Key), entry.Record, 0).IsOnline {
			out.OnlineUsers++
		}
	}

	engaged := 0
	for _, entry := range posts {
		if !isActiveSocialPost(entry.Record) {
			continue
		}
		out.ActivePosts++
		n := entry.Record.Int64(store.FieldLikes) + entry.Record.Int64(store.FieldComments) + entry.Record.Int64(store.FieldShares)
		out.Interactions += n
		if n > 0 {
			engaged++
		}
	}
	out.EngagementRate = EngagementRate(engaged, out.ActivePosts)
	return out, nil
}

// EngagementRate returns engaged/total as a percentage rounded to one decimal.
func EngagementRate(engaged, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(engaged)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(1)
}

func isActiveSocialPost(rec store.Record) bool {
	if active, ok := rec.Bool(store.FieldIsActive); ok && !active {
		return false
	}
	kind := rec.String(store.FieldKind)
	return kind == "" || kind == enums.PostKindSocial.String()
}
