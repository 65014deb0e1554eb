package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vidsmith/vidsmith/internal/credentials"
)

type credentialRequest struct {
	Key       string `json:"key"`
	ProjectID string `json:"project_id,omitempty"`
}

// HandlePutCredential stores or replaces a provider credential. Values are
// never echoed back.
func (h *Handler) HandlePutCredential(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "provider")
	if _, ok := h.providerByID(providerID); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown provider"})
		return
	}

	var body credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(body.Key) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "key must not be empty"})
		return
	}

	cred := credentials.Credential{Key: body.Key, ProjectID: body.ProjectID}
	if err := h.creds.Set(r.Context(), providerID, cred); err != nil {
		h.writeError(w, err)
		return
	}
	h.log.Info().Str("provider", providerID).Msg("credential updated")
	writeJSON(w, http.StatusOK, map[string]any{"provider": providerID, "configured": true})
}

// HandleListCredentials reports configuration status per provider, redacted.
func (h *Handler) HandleListCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sim, err := h.creds.SimulationMode(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}

	status := make(map[string]bool, len(h.engine.Providers()))
	for _, cfg := range h.engine.Providers() {
		configured, err := h.engine.IsConfigured(ctx, cfg)
		if err != nil {
			h.writeError(w, err)
			return
		}
		status[cfg.ID] = configured
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"providers":       status,
		"simulation_mode": sim,
	})
}

type simulationRequest struct {
	Enabled bool `json:"enabled"`
}

// HandleSetSimulation toggles simulation mode.
func (h *Handler) HandleSetSimulation(w http.ResponseWriter, r *http.Request) {
	var body simulationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.creds.SetSimulationMode(r.Context(), body.Enabled); err != nil {
		h.writeError(w, err)
		return
	}
	h.log.Info().Bool("enabled", body.Enabled).Msg("simulation mode updated")
	writeJSON(w, http.StatusOK, map[string]any{"simulation_mode": body.Enabled})
}
