package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vidsmith/vidsmith/config"
	"github.com/vidsmith/vidsmith/internal/provider"
)

func runRequest() *Request {
	return &Request{
		Prompt:          "a red fox in the snow",
		DurationSeconds: 10,
		Provider:        "replicate",
		RequestID:       "req-1",
	}
}

func singleProviderEnv(t *testing.T, wf *fakeWorkflow) *testEnv {
	t.Helper()
	configs := []config.Provider{tariff("replicate", 0, 0.08)}
	env := newTestEnv(t, configs, map[string]provider.Workflow{"replicate": wf}, false)
	env.setCredential(t, "replicate")
	return env
}

func TestRunSucceedsAfterPolling(t *testing.T) {
	wf := &fakeWorkflow{
		name:   "replicate",
		pollFn: succeedAfter(2, "https://cdn.example.com/out.mp4", "https://cdn.example.com/out.jpg"),
	}
	env := singleProviderEnv(t, wf)

	video, err := env.engine.Generate(context.Background(), runRequest(), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if video.MediaURL != "https://cdn.example.com/out.mp4" {
		t.Errorf("unexpected media url: %s", video.MediaURL)
	}
	if video.ThumbnailURL != "https://cdn.example.com/out.jpg" {
		t.Errorf("unexpected thumbnail url: %s", video.ThumbnailURL)
	}
	if wf.pollCount() != 3 {
		t.Errorf("expected 3 polls, got %d", wf.pollCount())
	}
}

func TestRunTimesOutAfterMaxAttempts(t *testing.T) {
	wf := &fakeWorkflow{name: "replicate", pollFn: alwaysPending, maxAttempts: 4}
	env := singleProviderEnv(t, wf)

	_, err := env.engine.Generate(context.Background(), runRequest(), nil)
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
	if wf.pollCount() != 4 {
		t.Errorf("expected exactly 4 polls, got %d", wf.pollCount())
	}
	env.assertNoSideEffects(t)
}

func TestRunMalformedSuccess(t *testing.T) {
	wf := &fakeWorkflow{
		name:   "replicate",
		pollFn: succeedAfter(0, "", ""),
	}
	env := singleProviderEnv(t, wf)

	_, err := env.engine.Generate(context.Background(), runRequest(), nil)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	env.assertNoSideEffects(t)
}

func TestRunThumbnailFallback(t *testing.T) {
	wf := &fakeWorkflow{
		name:   "replicate",
		pollFn: succeedAfter(0, "https://cdn.example.com/out.mp4", ""),
	}
	env := singleProviderEnv(t, wf)

	video, err := env.engine.Generate(context.Background(), runRequest(), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if video.ThumbnailURL == "" {
		t.Error("expected a placeholder thumbnail when the provider supplies none")
	}
	if video.MediaURL != "https://cdn.example.com/out.mp4" {
		t.Errorf("media url must never be substituted, got %s", video.MediaURL)
	}
}

func TestRunTerminalFailure(t *testing.T) {
	wf := &fakeWorkflow{
		name: "replicate",
		pollFn: func(int) (*provider.PollResult, error) {
			return &provider.PollResult{Status: provider.StatusFailed, Message: "NSFW content detected"}, nil
		},
	}
	env := singleProviderEnv(t, wf)

	_, err := env.engine.Generate(context.Background(), runRequest(), nil)
	var provErr *provider.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("expected provider.Error, got %v", err)
	}
	if provErr.Message != "NSFW content detected" {
		t.Errorf("provider detail lost: %q", provErr.Message)
	}
	env.assertNoSideEffects(t)
}

func TestRunSubmitErrorPropagates(t *testing.T) {
	wf := &fakeWorkflow{
		name:      "replicate",
		submitErr: &provider.Error{Provider: "replicate", StatusCode: 401, Message: "bad token"},
	}
	env := singleProviderEnv(t, wf)

	_, err := env.engine.Generate(context.Background(), runRequest(), nil)
	var provErr *provider.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("expected provider.Error, got %v", err)
	}
	if provErr.StatusCode != 401 {
		t.Errorf("expected status 401, got %d", provErr.StatusCode)
	}
	if wf.pollCount() != 0 {
		t.Errorf("no polls expected after submit failure, got %d", wf.pollCount())
	}
	env.assertNoSideEffects(t)
}

func TestRunProgressIsMonotonic(t *testing.T) {
	wf := &fakeWorkflow{
		name:        "replicate",
		pollFn:      succeedAfter(7, "https://cdn.example.com/out.mp4", "t.jpg"),
		maxAttempts: 10,
	}
	env := singleProviderEnv(t, wf)

	var percents []int
	var messages []string
	onProgress := func(p int, msg string) {
		percents = append(percents, p)
		messages = append(messages, msg)
	}

	if _, err := env.engine.Generate(context.Background(), runRequest(), onProgress); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(percents) < 3 {
		t.Fatalf("expected several progress reports, got %v", percents)
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("progress regressed: %v", percents)
		}
	}
	if percents[0] != 10 {
		t.Errorf("first report should be the connect step, got %d", percents[0])
	}
	if percents[1] != 25 {
		t.Errorf("second report should be the submit step, got %d", percents[1])
	}
	if percents[len(percents)-1] != 100 {
		t.Errorf("final report should be 100, got %d", percents[len(percents)-1])
	}
	for _, p := range percents[:len(percents)-1] {
		if p >= 100 {
			t.Errorf("only the final report may reach 100, saw %d mid-run", p)
		}
	}
	if !strings.Contains(messages[len(messages)-1], "successfully") {
		t.Errorf("unexpected completion message: %q", messages[len(messages)-1])
	}
}

func TestRunCancellationDuringPollWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wf := &fakeWorkflow{name: "replicate", pollFn: alwaysPending}
	env := singleProviderEnv(t, wf)
	env.clock.cancel = cancel
	env.clock.cancelAtCall = 2

	_, err := env.engine.Generate(ctx, runRequest(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	env.assertNoSideEffects(t)
}
