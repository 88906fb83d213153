package controllers

import (
	"net/http"

	"github.com/avendano-dev/storefront-backend/api/responses"
	"github.com/avendano-dev/storefront-backend/pkg/config"
	pkgerrors "github.com/avendano-dev/storefront-backend/pkg/errors"
	"github.com/avendano-dev/storefront-backend/pkg/logger"
	"github.com/avendano-dev/storefront-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the key-value store is reachable before reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, kv redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)

		if kv != nil {
			if err := kv.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
