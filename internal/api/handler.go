// Package api exposes the caller-facing HTTP surface.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vidsmith/vidsmith/internal/credentials"
	"github.com/vidsmith/vidsmith/internal/engine"
	"github.com/vidsmith/vidsmith/internal/gallery"
	"github.com/vidsmith/vidsmith/internal/ledger"
	"github.com/vidsmith/vidsmith/internal/provider"
	"github.com/vidsmith/vidsmith/pkg/ratelimit"
)

type Handler struct {
	engine  *engine.Engine
	ledger  *ledger.Ledger
	gallery *gallery.Gallery
	creds   *credentials.Store
	limiter *ratelimit.Limiter // nil disables rate limiting
	log     zerolog.Logger
}

func NewHandler(eng *engine.Engine, led *ledger.Ledger, gal *gallery.Gallery,
	creds *credentials.Store, limiter *ratelimit.Limiter, log zerolog.Logger) *Handler {
	return &Handler{
		engine:  eng,
		ledger:  led,
		gallery: gal,
		creds:   creds,
		limiter: limiter,
		log:     log,
	}
}

type generateRequest struct {
	Prompt          string `json:"prompt"`
	DurationSeconds int    `json:"duration_seconds"`
	Quality         string `json:"quality"`
	Style           string `json:"style"`
	Kind            string `json:"kind"`
	Provider        string `json:"provider"`
	ImageData       string `json:"image_data,omitempty"`
}

// HandleGenerate runs a generation and returns the persisted artifact.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	req, err := h.prepare(w, r)
	if err != nil {
		return
	}

	video, err := h.engine.Generate(r.Context(), req, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, video)
}

// HandleGenerateStream runs a generation and streams progress events over
// SSE, followed by a final result or error event.
func (h *Handler) HandleGenerateStream(w http.ResponseWriter, r *http.Request) {
	req, err := h.prepare(w, r)
	if err != nil {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	onProgress := func(percent int, message string) {
		payload, _ := json.Marshal(map[string]any{
			"percent": percent,
			"message": message,
		})
		fmt.Fprintf(w, "event: progress\ndata: %s\n\n", payload)
		flusher.Flush()
	}

	video, err := h.engine.Generate(r.Context(), req, onProgress)
	if err != nil {
		payload, _ := json.Marshal(map[string]string{"error": engine.UserMessage(err)})
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
		flusher.Flush()
		return
	}

	payload, _ := json.Marshal(video)
	fmt.Fprintf(w, "event: result\ndata: %s\n\n", payload)
	flusher.Flush()
}

func (h *Handler) prepare(w http.ResponseWriter, r *http.Request) (*engine.Request, error) {
	var body generateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return nil, err
	}

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(r.Context(), clientKey(r))
		if err != nil || !allowed {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":       "rate limit exceeded",
				"retry_after": "60s",
			})
			return nil, fmt.Errorf("rate limit exceeded")
		}
	}

	requestID := chimiddleware.GetReqID(r.Context())
	if requestID == "" {
		requestID = uuid.New().String()
	}

	return &engine.Request{
		Prompt:          body.Prompt,
		DurationSeconds: body.DurationSeconds,
		Quality:         body.Quality,
		Style:           body.Style,
		Kind:            provider.Kind(body.Kind),
		Provider:        body.Provider,
		ImageData:       body.ImageData,
		RequestID:       requestID,
	}, nil
}

// clientKey identifies the caller for rate limiting.
func clientKey(r *http.Request) string {
	if id := r.Header.Get("X-Client-ID"); id != "" {
		return id
	}
	return r.RemoteAddr
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var validation *engine.ValidationError
	var notConfigured *engine.NotConfiguredError
	var provErr *provider.Error
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &notConfigured):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrNoProviderConfigured):
		status = http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrPollTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, engine.ErrMalformedResponse):
		status = http.StatusBadGateway
	case errors.As(err, &provErr):
		status = http.StatusBadGateway
	}

	h.log.Error().Err(err).Int("status", status).Msg("request failed")
	writeJSON(w, status, map[string]string{"error": engine.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
