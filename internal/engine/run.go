package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vidsmith/vidsmith/config"
	"github.com/vidsmith/vidsmith/internal/credentials"
	"github.com/vidsmith/vidsmith/internal/provider"
)

// Progress layout: submit phase reports two fixed points, then the poll loop
// advances linearly through its budget. Progress stays below 100 until the
// orchestrator reports completion.
const (
	progressConnect   = 10
	progressSubmitted = 25
	pollFloor         = 40
	pollBudget        = 50
)

// run drives one provider workflow through submitting -> polling -> terminal.
// It owns all suspension points: the submit call, each poll call and the
// fixed inter-poll delay, every one of which honors ctx cancellation.
func (e *Engine) run(ctx context.Context, wf provider.Workflow, cfg config.Provider,
	req *provider.Request, cred credentials.Credential, onProgress ProgressFunc) (*provider.PollResult, error) {

	ctx, span := e.tracer.Start(ctx, "engine.run")
	defer span.End()
	span.SetAttributes(attribute.String("provider", wf.Name()))

	onProgress(progressConnect, fmt.Sprintf("Connecting to %s...", cfg.Name))

	jobID, err := wf.Submit(ctx, req, cred)
	if err != nil {
		return nil, err
	}

	onProgress(progressSubmitted, fmt.Sprintf("Prompt submitted to %s...", cfg.Name))

	maxAttempts := wf.MaxPollAttempts()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		percent := pollFloor + attempt*pollBudget/maxAttempts
		onProgress(percent, fmt.Sprintf("Rendering... (%d/%d)", attempt+1, maxAttempts))

		if err := e.clock.Sleep(ctx, wf.PollInterval()); err != nil {
			return nil, err
		}

		result, err := wf.Poll(ctx, jobID, cred)
		if err != nil {
			return nil, err
		}

		switch result.Status {
		case provider.StatusSucceeded:
			if result.MediaURL == "" {
				return nil, fmt.Errorf("%s: %w", wf.Name(), ErrMalformedResponse)
			}
			if result.ThumbnailURL == "" {
				result.ThumbnailURL = provider.PlaceholderThumbnail()
			}
			return result, nil
		case provider.StatusFailed:
			return nil, &provider.Error{Provider: wf.Name(), Message: result.Message}
		}
	}

	return nil, fmt.Errorf("%s: %w after %d poll attempts", wf.Name(), ErrPollTimeout, maxAttempts)
}
