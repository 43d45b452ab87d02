package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/vehicle-valuation/app"
	"github.com/upb/vehicle-valuation/handlers"
	"github.com/upb/vehicle-valuation/middleware"
	"github.com/upb/vehicle-valuation/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRequestLogger(deps.Logger).Handler)
	r.Use(chimw.Recoverer)
	if timeout := deps.Config.Server.RequestTimeout; timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.Config.Server.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	// Health check endpoints
	var db handlers.DatabaseChecker
	if deps.DB != nil {
		db = deps.DB
	}
	health := handlers.NewHealthHandler(db, deps.Providers.Names(), deps.Logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	valuations := handlers.NewValuationHandler(deps.ValuationService, deps.Logger)
	r.Route("/valuations", func(r chi.Router) {
		r.Get("/{vrm}", valuations.HandleGetValuation)
		r.Put("/{vrm}", valuations.HandleCreateValuation)
	})

	// API v1 routes
	failover := handlers.NewFailoverHandler(deps.ValuationService, deps.Logger)
	providerLogs := handlers.NewProviderLogHandler(deps.ValuationService, deps.Logger)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/failover", func(r chi.Router) {
			r.Get("/", failover.HandleStatus)
			r.Post("/reset", failover.HandleReset)
		})

		// the static summary route wins over {vrm}
		r.Route("/provider-logs", func(r chi.Router) {
			r.Get("/summary", providerLogs.HandleSummary)
			r.Get("/{vrm}", providerLogs.HandleList)
		})
	})

	return r
}
