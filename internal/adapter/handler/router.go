package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rl1809/apartment-sales/internal/port"
)

type RouterConfig struct {
	AllowedOrigins []string
}

// NewRouter mounts the public routes and the token-protected /api/v1 tree.
func NewRouter(h *HTTPHandler, tokens TokenValidator, logger port.LoggerPort, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", traceIDHeader, idempotencyKeyHeader},
		ExposedHeaders:   []string{traceIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokens))

			r.Route("/apartments", func(r chi.Router) {
				r.Get("/", h.ListApartments)
				r.Post("/", h.CreateApartment)
				r.Get("/{id}", h.GetApartment)
				r.Put("/{id}", h.UpdateApartment)
				r.Delete("/{id}", h.DeleteApartment)
			})

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", h.ListClients)
				r.Post("/", h.CreateClient)
				r.Get("/{id}", h.GetClient)
				r.Put("/{id}", h.UpdateClient)
				r.Delete("/{id}", h.DeleteClient)
			})

			r.Route("/reservations", func(r chi.Router) {
				r.Get("/", h.ListReservations)
				r.Post("/", h.CreateReservation)
				r.Get("/{id}", h.GetReservation)
				r.Delete("/{id}", h.CancelReservation)
			})

			r.Route("/sales", func(r chi.Router) {
				r.Get("/", h.ListSales)
				r.Post("/", h.ConfirmSale)
				r.Get("/{id}", h.GetSale)
			})
		})
	})

	return r
}
