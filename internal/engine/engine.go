// Package engine is the generation orchestrator: it validates requests,
// resolves a provider under the cost-minimization policy, drives the
// submit/poll workflow and commits usage, cost and the resulting artifact.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vidsmith/vidsmith/config"
	"github.com/vidsmith/vidsmith/internal/credentials"
	"github.com/vidsmith/vidsmith/internal/gallery"
	"github.com/vidsmith/vidsmith/internal/ledger"
	"github.com/vidsmith/vidsmith/internal/provider"
)

// ProviderAuto requests automatic lowest-cost provider selection.
const ProviderAuto = "auto"

// ProgressFunc receives progress updates, percent in [0,100].
type ProgressFunc func(percent int, message string)

// Request is one caller-submitted generation.
type Request struct {
	Prompt          string
	DurationSeconds int
	Quality         string
	Style           string
	Kind            provider.Kind
	Provider        string // provider id or ProviderAuto
	ImageData       string // base64 source image for image-to-video
	RequestID       string
}

// Options carries the injectable collaborators; zero values get defaults.
type Options struct {
	Clock  Clock
	Rand   func() float64 // uniform [0,1), drives simulation delays
	Logger zerolog.Logger
	Tracer trace.Tracer
}

type Engine struct {
	configs   []config.Provider
	workflows map[string]provider.Workflow
	ledger    *ledger.Ledger
	gallery   *gallery.Gallery
	creds     *credentials.Store
	breakers  map[string]*gobreaker.CircuitBreaker
	clock     Clock
	rand      func() float64
	log       zerolog.Logger
	tracer    trace.Tracer

	// commitMu serializes the completion write sequence so two racing
	// completions cannot lose ledger updates.
	commitMu sync.Mutex
}

func New(configs []config.Provider, workflows map[string]provider.Workflow,
	led *ledger.Ledger, gal *gallery.Gallery, creds *credentials.Store, opts Options) *Engine {

	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("engine")
	}

	breakers := make(map[string]*gobreaker.CircuitBreaker)
	for _, cfg := range configs {
		settings := gobreaker.Settings{
			Name:        cfg.ID,
			MaxRequests: 3,
			Interval:    5 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			// Caller-abandoned requests say nothing about provider health.
			IsSuccessful: func(err error) bool {
				return err == nil ||
					errors.Is(err, context.Canceled) ||
					errors.Is(err, context.DeadlineExceeded)
			},
		}
		breakers[cfg.ID] = gobreaker.NewCircuitBreaker(settings)
	}

	return &Engine{
		configs:   configs,
		workflows: workflows,
		ledger:    led,
		gallery:   gal,
		creds:     creds,
		breakers:  breakers,
		clock:     opts.Clock,
		rand:      opts.Rand,
		log:       opts.Logger,
		tracer:    opts.Tracer,
	}
}

// Providers returns the configured tariff table in iteration order.
func (e *Engine) Providers() []config.Provider {
	return e.configs
}

func (e *Engine) configByID(id string) (config.Provider, bool) {
	for _, cfg := range e.configs {
		if cfg.ID == id {
			return cfg, true
		}
	}
	return config.Provider{}, false
}

// IsConfigured reports whether the provider can accept a generation: it
// needs no credential, has one, or simulation mode is active.
func (e *Engine) IsConfigured(ctx context.Context, cfg config.Provider) (bool, error) {
	if !cfg.RequiresCredential {
		return true, nil
	}
	return e.creds.Configured(ctx, cfg.ID)
}

// Generate runs one generation end to end and returns the persisted
// artifact. On any failure or cancellation no ledger or gallery state is
// written. onProgress may be nil.
func (e *Engine) Generate(ctx context.Context, req *Request, onProgress ProgressFunc) (*gallery.Video, error) {
	ctx, span := e.tracer.Start(ctx, "engine.generate")
	defer span.End()

	if onProgress == nil {
		onProgress = func(int, string) {}
	}

	if err := validate(req); err != nil {
		return nil, err
	}

	providerID := req.Provider
	if providerID == "" || providerID == ProviderAuto {
		chosen, err := e.ChooseBest(ctx, req.DurationSeconds)
		if err != nil {
			return nil, err
		}
		providerID = chosen
	}
	cfg, ok := e.configByID(providerID)
	if !ok {
		return nil, &ValidationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", providerID)}
	}

	span.SetAttributes(
		attribute.String("provider", providerID),
		attribute.Int("duration_seconds", req.DurationSeconds),
		attribute.String("request_id", req.RequestID),
	)

	sim, err := e.creds.SimulationMode(ctx)
	if err != nil {
		return nil, err
	}

	preq := &provider.Request{
		Prompt:          strings.TrimSpace(req.Prompt),
		DurationSeconds: req.DurationSeconds,
		Quality:         req.Quality,
		Style:           req.Style,
		Kind:            req.Kind,
		ImageData:       req.ImageData,
		RequestID:       req.RequestID,
	}

	var result *provider.PollResult
	if sim {
		result, err = e.simulate(ctx, cfg, onProgress)
	} else {
		result, err = e.runProvider(ctx, cfg, preq, onProgress)
	}
	if err != nil {
		e.log.Warn().Err(err).Str("provider", providerID).Str("request_id", req.RequestID).
			Msg("generation failed")
		return nil, err
	}

	// Cancellation at the last suspension point: the caller abandoned the
	// workflow, so nothing is committed.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	video, err := e.commit(ctx, cfg, req, result)
	if err != nil {
		return nil, err
	}

	onProgress(100, "Video generated successfully!")
	e.log.Info().Str("provider", providerID).Str("video_id", video.ID).
		Float64("cost", video.Cost).Msg("generation complete")
	return video, nil
}

func (e *Engine) runProvider(ctx context.Context, cfg config.Provider, preq *provider.Request, onProgress ProgressFunc) (*provider.PollResult, error) {
	cred, hasCred, err := e.creds.Get(ctx, cfg.ID)
	if err != nil {
		return nil, err
	}
	if cfg.RequiresCredential && !hasCred {
		return nil, &NotConfiguredError{Provider: cfg.ID}
	}
	wf, ok := e.workflows[cfg.ID]
	if !ok {
		return nil, fmt.Errorf("no workflow registered for provider %s", cfg.ID)
	}

	out, err := e.breakers[cfg.ID].Execute(func() (interface{}, error) {
		return e.run(ctx, wf, cfg, preq, cred, onProgress)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("provider %s is temporarily unavailable: %w", cfg.ID, err)
		}
		return nil, err
	}
	return out.(*provider.PollResult), nil
}

// commit applies the completion writes in fixed order: usage, cost history,
// cumulative cost, artifact. A crash mid-sequence can leave usage and cost
// recorded without the artifact, never an artifact that was not billed. The
// cost is estimated against the ledger state before this request's usage is
// recorded, so the free tier is consumed exactly once.
func (e *Engine) commit(ctx context.Context, cfg config.Provider, req *Request, result *provider.PollResult) (*gallery.Video, error) {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	cost, err := e.ledger.Estimate(ctx, cfg, req.DurationSeconds)
	if err != nil {
		return nil, err
	}

	video := gallery.Video{
		ID:              gallery.NewID(),
		MediaURL:        result.MediaURL,
		ThumbnailURL:    result.ThumbnailURL,
		DurationSeconds: req.DurationSeconds,
		Quality:         req.Quality,
		Provider:        cfg.ID,
		Prompt:          strings.TrimSpace(req.Prompt),
		Style:           req.Style,
		Kind:            string(req.Kind),
		CreatedAt:       e.clock.Now().UTC(),
		Cost:            cost,
	}

	if err := e.ledger.Record(ctx, cfg.ID, float64(req.DurationSeconds)); err != nil {
		return nil, fmt.Errorf("record usage: %w", err)
	}
	entry := ledger.CostEntry{
		Date:     e.clock.Now().UTC().Format("2006-01-02"),
		Cost:     cost,
		Provider: cfg.ID,
	}
	if err := e.ledger.AppendCost(ctx, entry); err != nil {
		return nil, fmt.Errorf("append cost history: %w", err)
	}
	if err := e.ledger.AddTotalCost(ctx, cost); err != nil {
		return nil, fmt.Errorf("add total cost: %w", err)
	}
	if err := e.gallery.Prepend(ctx, video); err != nil {
		return nil, fmt.Errorf("persist artifact: %w", err)
	}
	return &video, nil
}

func validate(req *Request) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return &ValidationError{Field: "prompt", Reason: "must not be empty"}
	}
	if req.DurationSeconds <= 0 {
		return &ValidationError{Field: "duration_seconds", Reason: "must be a positive integer"}
	}
	switch req.Kind {
	case "", provider.KindTextToVideo:
		req.Kind = provider.KindTextToVideo
	case provider.KindImageToVideo:
		if req.ImageData == "" {
			return &ValidationError{Field: "image_data", Reason: "is required for image-to-video"}
		}
	default:
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", req.Kind)}
	}
	return nil
}
