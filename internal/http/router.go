// Package httpapi composes the service's routes behind one chi router.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "courier/internal/auth/handler"
	authmw "courier/internal/auth/middleware"
	notifyhandler "courier/internal/notify/handler"
	"courier/internal/platform/metrics"
	"courier/internal/platform/middleware"
	dErrors "courier/pkg/domain-errors"
	"courier/pkg/platform/httputil"
	"courier/pkg/requestcontext"
)

const bannerMessage = "hello, world!"

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps is everything the router mounts. Optional fields may be left zero.
type Deps struct {
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Auth          *authhandler.Handler
	Authenticator authmw.Authenticator
	TokenHeader   string
	Notify        *notifyhandler.Handler

	// AvatarDir is served under /avatars/ when set (local asset store).
	AvatarDir string
	// Gatherer backs /metrics; defaults to the global registry.
	Gatherer     prometheus.Gatherer
	HealthChecks map[string]HealthCheck
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewRouter returns the root handler. The notify routes sit behind the
// credential gate; everything else is public.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.AccessLog(logger, deps.Metrics))
	r.Use(middleware.Recovery(logger))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, httputil.MessageNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeMethodNotAllowed, httputil.MessageNotAllowed))
	})

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, httputil.ErrorResponse{
			Status:  httputil.StatusSuccess,
			Message: bannerMessage,
		})
	})
	r.Get("/health", healthHandler(deps.HealthChecks, logger))

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if deps.AvatarDir != "" {
		r.Method(http.MethodGet, "/avatars/*", http.StripPrefix("/avatars/", http.FileServer(http.Dir(deps.AvatarDir))))
	}

	if deps.Auth != nil {
		deps.Auth.Register(r)
	}
	if deps.Notify != nil && deps.Authenticator != nil {
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAuth(deps.Authenticator, deps.TokenHeader, logger))
			deps.Notify.Register(r)
		})
	}

	return r
}

func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: httputil.StatusSuccess}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed",
					"request_id", requestcontext.RequestID(ctx),
					"dependency", name,
					"error", err,
				)
				resp.Checks[name] = "down"
				resp.Status = httputil.StatusError
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "up"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
