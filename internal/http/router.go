package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig wires handlers and cross-cutting middleware into the router.
type RouterConfig struct {
	Medications *MedicationHandler
	Adherence   *AdherenceHandler
	Logger      *slog.Logger
	Middleware  []func(http.Handler) http.Handler
}

// NewRouter assembles the HTTP API. Every endpoint except the health probe
// requires a resolved principal.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger(cfg.Logger))
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		newResponder(cfg.Logger).writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(RequirePrincipal(cfg.Logger))

		if cfg.Medications != nil {
			r.Get("/medications/search", cfg.Medications.Search)
		}

		r.Route("/user-medications", func(r chi.Router) {
			if cfg.Medications != nil {
				r.Get("/", cfg.Medications.List)
				r.Post("/", cfg.Medications.Create)
			}
			if cfg.Adherence != nil {
				r.Get("/day", cfg.Adherence.Day)
				r.Get("/indicators", cfg.Adherence.Indicators)
			}
			r.Route("/{scheduleID}", func(r chi.Router) {
				if cfg.Medications != nil {
					r.Get("/", cfg.Medications.Get)
					r.Put("/", cfg.Medications.Update)
					r.Delete("/", cfg.Medications.Delete)
				}
				if cfg.Adherence != nil {
					r.Post("/log-taken", cfg.Adherence.LogTaken)
				}
			})
		})
	})

	return r
}
