package controllers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/kiko-social-backend/api/responses"
	"github.com/angelmondragon/kiko-social-backend/internal/identity"
	"github.com/angelmondragon/kiko-social-backend/internal/profiles"
	pkgerrors "github.com/angelmondragon/kiko-social-backend/pkg/errors"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
)

type profileResponse struct {
	Profile profiles.View `json:"profile"`
	Found   bool          `json:"found"`
}

// ProfileGet resolves a profile by email or key. Unknown keys answer with the
// deterministic fallback view and found=false.
func ProfileGet(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := url.PathUnescape(chi.URLParam(r, "key"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid profile key"))
			return
		}
		key := identity.Normalize(raw)
		if key == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "profile key is required"))
			return
		}
		view, found := svc.ResolveOrFallback(r.Context(), key)
		responses.WriteSuccess(w, profileResponse{Profile: view, Found: found})
	}
}
