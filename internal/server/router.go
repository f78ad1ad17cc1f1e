package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Wuchinator/scan-analytics/internal/httpapi"
)

// Routes is implemented by the scan and dashboard handlers.
type Routes interface {
	RegisterRoutes(r chi.Router)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	Checks         map[string]HealthCheck
}

func NewRouter(scans, dashboard Routes, opts Options, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(httpapi.LoggerMiddleware(logger))
	router.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		router.Use(middleware.Timeout(opts.RequestTimeout))
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", httpapi.UserHeader},
		MaxAge:         300,
	}))

	router.Get("/api/health", healthHandler(opts.Checks))

	router.Route("/api/scans", func(r chi.Router) {
		r.Use(httpapi.RequireUser)
		scans.RegisterRoutes(r)
	})

	router.Route("/api/dashboard", func(r chi.Router) {
		r.Use(httpapi.RequireUser)
		dashboard.RegisterRoutes(r)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpapi.WriteError(w, http.StatusNotFound, "not_found", "endpoint not found")
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpapi.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	return router
}

type HealthResponse struct {
	Healthy      bool              `json:"healthy"`
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := CheckHealth(r.Context(), checks)

		status := http.StatusOK
		if !resp.Healthy {
			status = http.StatusServiceUnavailable
		}
		httpapi.WriteJSON(w, status, resp)
	}
}

// CheckHealth runs every check with a short timeout.
func CheckHealth(ctx context.Context, checks map[string]HealthCheck) HealthResponse {
	resp := HealthResponse{
		Healthy:      true,
		Status:       "ok",
		Dependencies: make(map[string]string, len(checks)),
	}

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := checks[name](checkCtx)
		cancel()

		if err != nil {
			resp.Healthy = false
			resp.Status = "degraded"
			resp.Dependencies[name] = err.Error()
			continue
		}
		resp.Dependencies[name] = "ok"
	}

	return resp
}
