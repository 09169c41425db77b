package controllers

import (
	"net/http"

	"github.com/angelmondragon/kiko-social-backend/api/middleware"
	"github.com/angelmondragon/kiko-social-backend/internal/identity"
	pkgerrors "github.com/angelmondragon/kiko-social-backend/pkg/errors"
)

func principalFrom(r *http.Request) (identity.Principal, error) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return identity.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return principal, nil
}
