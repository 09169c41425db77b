package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/kiko-social-backend/api/responses"
	"github.com/angelmondragon/kiko-social-backend/internal/identity"
	pkgAuth "github.com/angelmondragon/kiko-social-backend/pkg/auth"
	"github.com/angelmondragon/kiko-social-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/kiko-social-backend/pkg/errors"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
)

// Auth validates the identity provider's bearer token and seeds the request
// context with the principal it names.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParsePrincipalToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			principal := identity.Principal{Email: claims.Email, DisplayName: claims.DisplayName}
			ctx := WithPrincipal(r.Context(), principal)
			if logg != nil {
				ctx = logg.WithPrincipal(ctx, principal.Key().String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
