package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vidsmith/vidsmith/config"
)

func (h *Handler) providerByID(id string) (config.Provider, bool) {
	for _, cfg := range h.engine.Providers() {
		if cfg.ID == id {
			return cfg, true
		}
	}
	return config.Provider{}, false
}

// Router assembles the full HTTP surface.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/generations", h.HandleGenerate)
		r.Post("/generations/stream", h.HandleGenerateStream)

		r.Get("/estimates", h.HandleEstimates)
		r.Get("/usage", h.HandleUsage)
		r.Delete("/usage", h.HandleResetUsage)

		r.Route("/videos", func(r chi.Router) {
			r.Get("/", h.HandleListVideos)
			r.Delete("/", h.HandleClearVideos)
			r.Get("/{id}", h.HandleGetVideo)
			r.Delete("/{id}", h.HandleDeleteVideo)
			r.Post("/{id}/duplicate", h.HandleDuplicateVideo)
		})

		r.Get("/backup", h.HandleExportBackup)
		r.Post("/backup", h.HandleImportBackup)

		r.Get("/credentials", h.HandleListCredentials)
		r.Put("/credentials/{provider}", h.HandlePutCredential)
		r.Put("/settings/simulation", h.HandleSetSimulation)
	})

	return r
}
