package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/kiko-social-backend/api/responses"
	"github.com/angelmondragon/kiko-social-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/kiko-social-backend/pkg/errors"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
	"github.com/angelmondragon/kiko-social-backend/pkg/store"
)

const readyTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Kiko-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the record store adapter.
func HealthReady(cfg *config.Config, logg *logger.Logger, pinger store.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Kiko-Env", cfg.App.Env)
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record store not ready"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready", "store": cfg.Store.Backend})
	}
}
