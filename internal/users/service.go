// Package users implements administrator-only user management.
package users

import (
	"context"
	"strings"

	"github.com/angelmondragon/kiko-social-backend/internal/access"
	"github.com/angelmondragon/kiko-social-backend/internal/identity"
	"github.com/angelmondragon/kiko-social-backend/internal/profiles"
	"github.com/angelmondragon/kiko-social-backend/pkg/config"
	"github.com/angelmondragon/kiko-social-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kiko-social-backend/pkg/errors"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
	"github.com/angelmondragon/kiko-social-backend/pkg/security"
	"github.com/angelmondragon/kiko-social-backend/pkg/store"
)

const tempPasswordLength = 16

type ServiceParams struct {
	Repo           *Repository
	Access         access.Service
	Profiles       profiles.Service
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type Service interface {
	Create(ctx context.Context, caller identity.Principal, input CreateUserInput) (CreatedUser, error)
	List(ctx context.Context, caller identity.Principal) ([]profiles.View, error)
}

type service struct {
	repo      *Repository
	access    access.Service
	profiles  profiles.Service
	passwords config.PasswordConfig
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "users repository is required")
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
	return &service{
		repo:      params.Repo,
		access:    params.Access,
		profiles:  params.Profiles,
		passwords: params.PasswordConfig,
		logg:      logg,
	}, nil
}

// Create writes a current-schema profile. The caller's privilege is checked
// before the store is touched; an existing key is a conflict.
func (s *service) Create(ctx context.Context, caller identity.Principal, input CreateUserInput) (CreatedUser, error) {
	if err := s.access.RequireAdministrator(ctx, caller); err != nil {
		return CreatedUser{}, err
	}

	key := identity.Normalize(input.Email)
	if !store.IsSegment(key.String()) || !strings.Contains(key.String(), "@") {
		return CreatedUser{}, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return CreatedUser{}, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	username := strings.TrimSpace(input.Username)
	if username == "" {
		username = identity.LocalPart(key)
	}
	role := input.Role
	if role == "" {
		role = enums.RoleUser
	}
	if !role.IsValid() {
		return CreatedUser{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"principal":   caller.Key().String(),
		"profile_key": key.String(),
	})

	exists, err := s.repo.Exists(ctx, key)
	if err != nil {
		return CreatedUser{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing user")
	}
	if exists {
		return CreatedUser{}, pkgerrors.New(pkgerrors.CodeConflict, "user already exists")
	}

	password := input.Password
	var temp string
	if password == "" {
		temp, err = security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return CreatedUser{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
		}
		password = temp
	}
	hash, err := security.HashPassword(password, s.passwords)
	if err != nil {
		return CreatedUser{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	rec := profiles.CurrentRecord{
		PasswordHash:  hash,
		Role:          role.String(),
		Name:          name,
		Username:      username,
		Bio:           strings.TrimSpace(input.Bio),
		Email:         key.String(),
		AvatarColor:   profiles.ColorFor(key.String()),
		AccountStatus: enums.AccountStatusActive.String(),
	}
	if err := s.repo.Create(ctx, key, rec.ToStore()); err != nil {
		s.logg.Error(ctx, "users.create.write_failed", err)
		return CreatedUser{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	s.logg.Info(ctx, "users.create")

	view, _ := s.profiles.ResolveOrFallback(ctx, key)
	return CreatedUser{Key: key, Profile: view, TempPassword: temp}, nil
}

// List resolves every stored user with post counts from a single posts scan.
func (s *service) List(ctx context.Context, caller identity.Principal) ([]profiles.View, error) {
	if err := s.access.RequireAdministrator(ctx, caller); err != nil {
		return nil, err
	}
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	posts, err := s.repo.Posts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan posts")
	}

	out := make([]profiles.View, 0, len(entries))
	for _, entry := range entries {
		key := identity.Key(entry.Key)
		out = append(out, s.profiles.FromRecord(key, entry.Record, profiles.CountPosts(posts, key)))
	}
	return out, nil
}

