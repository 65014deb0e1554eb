package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vidsmith/vidsmith/internal/gallery"
	"github.com/vidsmith/vidsmith/internal/ledger"
)

// Snapshot is the portable backup format: the full gallery plus ledger state.
type Snapshot struct {
	Videos      []gallery.Video    `json:"videos"`
	Usage       map[string]float64 `json:"usage_seconds"`
	CostHistory []ledger.CostEntry `json:"cost_history"`
	TotalCost   float64            `json:"total_cost"`
	ExportedAt  time.Time          `json:"exported_at"`
}

// HandleExportBackup serializes the current state as a downloadable snapshot.
func (h *Handler) HandleExportBackup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videos, err := h.gallery.List(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if videos == nil {
		videos = []gallery.Video{}
	}
	usage, err := h.ledger.Usage(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	history, err := h.ledger.History(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if history == nil {
		history = []ledger.CostEntry{}
	}
	total, err := h.ledger.TotalCost(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="vidsmith-backup.json"`)
	writeJSON(w, http.StatusOK, Snapshot{
		Videos:      videos,
		Usage:       usage,
		CostHistory: history,
		TotalCost:   total,
		ExportedAt:  time.Now().UTC(),
	})
}

// HandleImportBackup restores a snapshot. ?mode=replace (default) overwrites
// gallery and ledger; ?mode=merge appends unseen videos and keeps the current
// ledger untouched.
func (h *Handler) HandleImportBackup(w http.ResponseWriter, r *http.Request) {
	var snap Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid backup payload"})
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "replace"
	}

	ctx := r.Context()
	switch mode {
	case "replace":
		if err := h.gallery.Replace(ctx, snap.Videos); err != nil {
			h.writeError(w, err)
			return
		}
		if err := h.ledger.Restore(ctx, snap.Usage, snap.CostHistory, snap.TotalCost); err != nil {
			h.writeError(w, err)
			return
		}
	case "merge":
		if err := h.gallery.Merge(ctx, snap.Videos); err != nil {
			h.writeError(w, err)
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "mode must be replace or merge",
		})
		return
	}

	count, err := h.gallery.Count(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.log.Info().Str("mode", mode).Int("videos", count).Msg("backup imported")
	writeJSON(w, http.StatusOK, map[string]any{"mode": mode, "video_count": count})
}
