/**
 * @description
 * This file sets up the HTTP router for the onboarding service using the
 * go-chi/chi router. It defines the API routes, applies middleware for
 * logging, panic recovery and CORS, and maps the routes to their
 * corresponding handler functions.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the onboarding routes.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Onboarding service is healthy"))
	})

	r.Route("/customers", func(r chi.Router) {
		r.Post("/", h.handleRegisterCustomer)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetCustomer)
			r.Delete("/", h.handleDeactivateCustomer)
			r.Put("/financial-info", h.handleSubmitFinancialInfo)
			r.Post("/credit-limit", h.handleApproveCreditLimit)
			r.Get("/eligibility", h.handleGetEligibility)
			r.Post("/cards", h.handleRequestCardIssuance)
			r.Get("/cards/status", h.handleGetCardStatus)
		})
	})

	return r
}
