package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidsmith/vidsmith/internal/gallery"
)

func (h *Handler) HandleListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.gallery.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if videos == nil {
		videos = []gallery.Video{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"videos": videos})
}

func (h *Handler) HandleGetVideo(w http.ResponseWriter, r *http.Request) {
	video, err := h.gallery.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeVideoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, video)
}

func (h *Handler) HandleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	if err := h.gallery.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeVideoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleDuplicateVideo(w http.ResponseWriter, r *http.Request) {
	dup, err := h.gallery.Duplicate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeVideoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dup)
}

func (h *Handler) HandleClearVideos(w http.ResponseWriter, r *http.Request) {
	if err := h.gallery.Clear(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeVideoError(w http.ResponseWriter, err error) {
	if errors.Is(err, gallery.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "video not found"})
		return
	}
	h.writeError(w, err)
}
