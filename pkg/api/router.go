package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/localix/preloadd/internal/logger"
	"github.com/localix/preloadd/pkg/api/auth"
	"github.com/localix/preloadd/pkg/api/handlers"
	apimw "github.com/localix/preloadd/pkg/api/middleware"
	"github.com/localix/preloadd/pkg/preload"
)

// requestTimeout bounds every route except event streams.
const requestTimeout = 30 * time.Second

// NewRouter creates and configures the chi router with all middleware and routes.
//
// When jwtService is nil the /api/v1 routes are unauthenticated. Otherwise
// every /api/v1 route needs a valid token and the mutating ones an admin
// token.
//
// Routes:
//   - GET    /health                             Liveness probe
//   - GET    /health/ready                       Readiness probe
//   - GET    /api/v1/resources                   Resource summaries
//   - GET    /api/v1/resources/{key}             Resource state with data
//   - GET    /api/v1/resources/{key}/events      Server-sent state stream
//   - POST   /api/v1/resources/{key}/refresh     Force refresh (key or "all")
//   - DELETE /api/v1/resources/{key}/fetch       Cancel the in-flight fetch
//   - POST   /api/v1/preload                     Run a preload batch
//   - GET    /api/v1/config                      Scheduler configuration
//   - PATCH  /api/v1/config                      Update scheduler configuration
//   - GET    /api/v1/cache                       Cache statistics
//   - POST   /api/v1/cache/purge                 Drop expired entries
//   - DELETE /api/v1/cache                       Clear the cache
func NewRouter(scheduler *preload.Scheduler, jwtService *auth.JWTService) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	healthHandler := handlers.NewHealthHandler(scheduler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Route("/health", func(r chi.Router) {
			r.Get("/", healthHandler.Liveness)
			r.Get("/ready", healthHandler.Readiness)
		})

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
		})
	})

	if scheduler == nil {
		return r
	}

	resourceHandler := handlers.NewResourceHandler(scheduler)
	preloadHandler := handlers.NewPreloadHandler(scheduler)
	configHandler := handlers.NewConfigHandler(scheduler)
	cacheHandler := handlers.NewCacheHandler(scheduler)

	r.Route("/api/v1", func(r chi.Router) {
		if jwtService != nil {
			r.Use(apimw.JWTAuth(jwtService))
		}

		// Streams stay open; no request timeout.
		r.Get("/resources/{key}/events", resourceHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Get("/resources", resourceHandler.List)
			r.Get("/resources/{key}", resourceHandler.Get)
			r.Get("/config", configHandler.Get)
			r.Get("/cache", cacheHandler.Stats)

			r.Group(func(r chi.Router) {
				if jwtService != nil {
					r.Use(apimw.RequireAdmin())
				}
				r.Post("/resources/{key}/refresh", resourceHandler.Refresh)
				r.Delete("/resources/{key}/fetch", resourceHandler.CancelFetch)
				r.Post("/preload", preloadHandler.PreloadAll)
				r.Patch("/config", configHandler.Patch)
				r.Post("/cache/purge", cacheHandler.Purge)
				r.Delete("/cache", cacheHandler.Clear)
			})
		})
	})

	return r
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			logger.KeyRequestID, requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			logger.KeyRequestID, requestID,
			"method", r.Method,
			"path", r.URL.Path,
			logger.KeyStatus, ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.KeyDurationMs, time.Since(start).Milliseconds(),
		)
	})
}
