package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/evanhart/storefront-backend/api/responses"
	"github.com/evanhart/storefront-backend/pkg/config"
	"github.com/evanhart/storefront-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

const readyCheckTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the hard dependencies and reports per-dependency status.
// Any failed ping turns the response into a 503 so load balancers stop
// routing traffic here.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP pinger, redisP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		checks["database"] = pingStatus(ctx, logg, "database", dbP)
		checks["redis"] = pingStatus(ctx, logg, "redis", redisP)
		for _, status := range checks {
			if status != "ok" {
				healthy = false
			}
		}

		payload := map[string]any{"status": "ready", "checks": checks}
		if !healthy {
			payload["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, payload)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}

func pingStatus(ctx context.Context, logg *logger.Logger, name string, p pinger) string {
	if p == nil {
		return "not configured"
	}
	if err := p.Ping(ctx); err != nil {
		if logg != nil {
			logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
		}
		return "unreachable"
	}
	return "ok"
}
