package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RouterConfig tunes the shared HTTP surface.
type RouterConfig struct {
	RequestsPerSecond float64
	Burst             int
	MaxBodyBytes      int64
}

// NewRouter assembles the full API router: health at the root, all other
// endpoints under /api behind the rate limiter.
func NewRouter(cfg RouterConfig, imp Importer, relay TaskRelay, store AdminStore) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Organization-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", healthHandler(store))

	r.Route("/api", func(r chi.Router) {
		if cfg.RequestsPerSecond > 0 {
			r.Use(rateLimiter(cfg.RequestsPerSecond, cfg.Burst))
		}
		NewImportService(imp, cfg.MaxBodyBytes).RegisterRoutes(r)
		NewRelayService(relay).RegisterRoutes(r)
		NewAdminService(store).RegisterRoutes(r)
	})

	return r
}

// healthHandler reports liveness and storage reachability.
func healthHandler(store AdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"store":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// rateLimiter applies a process-wide token bucket to everything under /api.
func rateLimiter(rps float64, burst int) func(http.Handler) http.Handler {
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				writeJSONError(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs one line per request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("component", "api"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
