package controllers

import (
	"net/http"

	"github.com/angelmondragon/kiko-social-backend/api/responses"
	"github.com/angelmondragon/kiko-social-backend/internal/analytics"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
)

// AdminAnalytics returns the dashboard summary.
func AdminAnalytics(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.Summary(r.Context(), principal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
