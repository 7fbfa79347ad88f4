/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. Recoverer:     Panic recovery (500 instead of crash)
  3. RequestLogger: Structured request logging via zap
  4. CORS:          Cross-origin requests for frontends
  5. Authenticate:  Bearer token -> Principal (API routes only)

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Authentication and logging
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger *zap.Logger, jwtSecret []byte) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/api/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(jwtSecret))

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Put("/{id}", h.UpdateEmployee)
			r.Delete("/{id}", h.DeleteEmployee)

			r.Post("/{id}/entries", h.AppendEntry)
			r.Get("/{id}/entries", h.ListEntries)
			r.Patch("/{id}/entries/{date}", h.EditEntry)

			r.Get("/{id}/compensation", h.GetCompensation)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.GetRules)
			r.Put("/", h.ReplaceRules)
		})

		r.Get("/audit", h.QueryAudit)
	})

	return r
}
