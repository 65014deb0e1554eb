package api

import (
	"net/http"
	"strconv"
)

type providerEstimate struct {
	Provider      string   `json:"provider"`
	Name          string   `json:"name"`
	EstimatedCost float64  `json:"estimated_cost"`
	RemainingFree float64  `json:"remaining_free_seconds"`
	Configured    bool     `json:"configured"`
	Quality       string   `json:"quality"`
	Features      []string `json:"features"`
}

// HandleEstimates prices a hypothetical generation of ?duration=N seconds
// against every provider without recording anything.
func (h *Handler) HandleEstimates(w http.ResponseWriter, r *http.Request) {
	duration := 10
	if raw := r.URL.Query().Get("duration"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "duration must be a positive integer",
			})
			return
		}
		duration = n
	}

	ctx := r.Context()
	estimates := make([]providerEstimate, 0, len(h.engine.Providers()))
	for _, cfg := range h.engine.Providers() {
		cost, err := h.ledger.Estimate(ctx, cfg, duration)
		if err != nil {
			h.writeError(w, err)
			return
		}
		free, err := h.ledger.RemainingFree(ctx, cfg)
		if err != nil {
			h.writeError(w, err)
			return
		}
		configured, err := h.engine.IsConfigured(ctx, cfg)
		if err != nil {
			h.writeError(w, err)
			return
		}
		estimates = append(estimates, providerEstimate{
			Provider:      cfg.ID,
			Name:          cfg.Name,
			EstimatedCost: cost,
			RemainingFree: free,
			Configured:    configured,
			Quality:       cfg.Quality,
			Features:      cfg.Features,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"duration_seconds": duration,
		"estimates":        estimates,
	})
}

// HandleUsage reports consumed seconds per provider, the cumulative cost and
// the full cost history.
func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	usage, err := h.ledger.Usage(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	// Providers with no recorded usage still show up with zero.
	for _, cfg := range h.engine.Providers() {
		if _, ok := usage[cfg.ID]; !ok {
			usage[cfg.ID] = 0
		}
	}

	total, err := h.ledger.TotalCost(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	history, err := h.ledger.History(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	count, err := h.gallery.Count(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"usage_seconds": usage,
		"total_cost":    total,
		"video_count":   count,
		"cost_history":  history,
	})
}

// HandleResetUsage wipes usage, cost history and the cumulative cost. The
// gallery is untouched; clearing videos is a separate call.
func (h *Handler) HandleResetUsage(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Clear(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.log.Info().Msg("usage ledger reset")
	w.WriteHeader(http.StatusNoContent)
}
