package controllers

import (
	"net/http"

	"github.com/angelmondragon/kiko-social-backend/api/responses"
	"github.com/angelmondragon/kiko-social-backend/api/validators"
	"github.com/angelmondragon/kiko-social-backend/internal/content"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
)

type formatRequest struct {
	Content string `json:"content" validate:"max=20000"`
}

// FormatPreview renders a draft body without storing it.
func FormatPreview(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body formatRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, content.Format(body.Content))
	}
}
