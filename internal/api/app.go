package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"KataSweetShop/internal/auth"
	"KataSweetShop/internal/catalog"
	"KataSweetShop/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

const (
	loginLimitPerMin    = 5
	registerLimitPerMin = 3
	limitWindow         = 60 * time.Second

	readyTimeout = 1 * time.Second
)

// NewHandler assembles the full API: /api/auth, /api/sweets, health probes
// and the metrics endpoint.
func NewHandler(authSrv *auth.Server, catalogSrv *catalog.Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()

	metricsOn := deps.MetricsEnabled && deps.Registry != nil
	if deps.MetricsEnabled && deps.Registry == nil && deps.Log != nil {
		deps.Log.Warn("metrics enabled but Registry is nil")
	}

	setupMiddleware(r, deps)
	setupRoutes(r, authSrv, catalogSrv, deps, metricsOn)

	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))

	if deps.Registry != nil {
		metrics := kit.NewMetrics(deps.Registry)
		r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))
	}
}

func setupRoutes(r *chi.Mux, authSrv *auth.Server, catalogSrv *catalog.Server, deps HTTPDeps, metricsOn bool) {
	loginLimiter := kit.NewIPRateLimiter(loginLimitPerMin, int(limitWindow.Seconds()))
	registerLimiter := kit.NewIPRateLimiter(registerLimitPerMin, int(limitWindow.Seconds()))

	r.Route("/api", func(ar chi.Router) {
		ar.Route("/auth", func(rr chi.Router) {
			rr.With(loginLimiter.Middleware).Post("/login", authSrv.LoginHandler())
			rr.With(registerLimiter.Middleware).Post("/register", authSrv.RegisterHandler())
			rr.Get("/whoami", authSrv.WhoAmIHandler())
		})
		ar.Mount("/sweets", catalogSrv.Routes())
	})

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(authSrv, catalogSrv, deps.Log))

	if metricsOn {
		r.With(kit.MetricsAuth(deps.MetricsToken)).Handle(
			"/metrics",
			promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}),
		)
	}
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func readyz(authSrv *auth.Server, catalogSrv *catalog.Server, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := authSrv.Store.Ping(ctx); err != nil {
			if log != nil {
				log.Warn("readyz failed: users", zap.Error(err))
			}
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		if err := catalogSrv.Store.Ping(ctx); err != nil {
			if log != nil {
				log.Warn("readyz failed: sweets", zap.Error(err))
			}
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
