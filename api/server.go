/*
server.go - HTTP router and middleware configuration

PURPOSE:

	Configures the HTTP router (chi), middleware stack, and route
	definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
 1. Logger:     Request logging
 2. Recoverer:  Panic recovery (500 instead of crash)
 3. RequestID:  Unique ID per request for tracing
 4. CORS:       Cross-origin requests for the operator frontend

ROUTE GROUPS:

	/api/customers/*   Customer records, ledger, payments
	/api/rentals/*     Rentals plus the extend/payday billing operations
	/api/reports/*     Overdue scan output

SECURITY NOTE:

	No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Customer routes
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.CreateCustomer)
			r.Get("/{id}", h.GetCustomer)
			r.Get("/{id}/transactions", h.GetCustomerTransactions)
			r.Post("/{id}/payments", h.RecordPayment)
		})

		// Rental routes
		r.Route("/rentals", func(r chi.Router) {
			r.Get("/", h.ListRentals)
			r.Post("/", h.CreateRental)
			r.Get("/{id}", h.GetRental)
			r.Post("/{id}/extend", h.ExtendRent)
			r.Post("/{id}/payday", h.ChangePayday)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/overdue", h.GetOverdueReport)
		})
	})

	return r
}
