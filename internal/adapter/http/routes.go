package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfotel "github.com/Strob0t/secretsdir/internal/adapter/otel"
)

// NewRouter returns the admin router with middleware and routes mounted.
func NewRouter(h *Handlers, serviceName string) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cfotel.HTTPMiddleware(serviceName))

	MountRoutes(r, h)
	return r
}

// MountRoutes registers the admin routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/secrets", func(r chi.Router) {
		r.Get("/", h.ListSecrets)
		r.Get("/{key}", h.GetSecret)
		r.Post("/reload", h.ReloadSecrets)
	})
}
