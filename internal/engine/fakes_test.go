package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vidsmith/vidsmith/config"
	"github.com/vidsmith/vidsmith/internal/credentials"
	"github.com/vidsmith/vidsmith/internal/gallery"
	"github.com/vidsmith/vidsmith/internal/ledger"
	"github.com/vidsmith/vidsmith/internal/provider"
	"github.com/vidsmith/vidsmith/internal/store"
)

// fakeClock advances instantly. Sleep records the requested durations and
// honors ctx cancellation like the real clock.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration

	// cancel, when set, is invoked before the Nth sleep (1-based) to test
	// cancellation at a suspension point.
	cancel       func()
	cancelAtCall int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.slept = append(c.slept, d)
	call := len(c.slept)
	cancel := c.cancel
	cancelAt := c.cancelAtCall
	c.now = c.now.Add(d)
	c.mu.Unlock()

	if cancel != nil && call == cancelAt {
		cancel()
	}
	return ctx.Err()
}

func (c *fakeClock) sleepCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slept)
}

// fakeWorkflow scripts submit and per-attempt poll outcomes.
type fakeWorkflow struct {
	name        string
	submitID    string
	submitErr   error
	pollFn      func(attempt int) (*provider.PollResult, error)
	interval    time.Duration
	maxAttempts int

	mu      sync.Mutex
	submits int
	polls   int
}

func (f *fakeWorkflow) Name() string { return f.name }

func (f *fakeWorkflow) Submit(ctx context.Context, req *provider.Request, cred credentials.Credential) (string, error) {
	f.mu.Lock()
	f.submits++
	f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	if f.submitID == "" {
		return "job-1", nil
	}
	return f.submitID, nil
}

func (f *fakeWorkflow) Poll(ctx context.Context, jobID string, cred credentials.Credential) (*provider.PollResult, error) {
	f.mu.Lock()
	attempt := f.polls
	f.polls++
	f.mu.Unlock()
	return f.pollFn(attempt)
}

func (f *fakeWorkflow) PollInterval() time.Duration {
	if f.interval == 0 {
		return time.Millisecond
	}
	return f.interval
}

func (f *fakeWorkflow) MaxPollAttempts() int {
	if f.maxAttempts == 0 {
		return 5
	}
	return f.maxAttempts
}

func (f *fakeWorkflow) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

// succeedAfter polls pending for n attempts, then succeeds with the URL.
func succeedAfter(n int, mediaURL, thumbURL string) func(int) (*provider.PollResult, error) {
	return func(attempt int) (*provider.PollResult, error) {
		if attempt < n {
			return &provider.PollResult{Status: provider.StatusPending}, nil
		}
		return &provider.PollResult{
			Status:       provider.StatusSucceeded,
			MediaURL:     mediaURL,
			ThumbnailURL: thumbURL,
		}, nil
	}
}

func alwaysPending(int) (*provider.PollResult, error) {
	return &provider.PollResult{Status: provider.StatusPending}, nil
}

type testEnv struct {
	engine  *Engine
	ledger  *ledger.Ledger
	gallery *gallery.Gallery
	creds   *credentials.Store
	clock   *fakeClock
}

func tariff(id string, free, rate float64) config.Provider {
	return config.Provider{
		ID:                 id,
		Name:               id,
		FreeLimitSeconds:   free,
		CostPerSecond:      rate,
		RequiresCredential: true,
	}
}

func newTestEnv(t *testing.T, configs []config.Provider, workflows map[string]provider.Workflow, simulation bool) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, store.NewMemory(), configs, workflows, simulation)
}

func newTestEnvWithStore(t *testing.T, kv store.Store, configs []config.Provider, workflows map[string]provider.Workflow, simulation bool) *testEnv {
	t.Helper()

	led := ledger.New(kv)
	gal := gallery.New(kv)
	creds := credentials.New(kv, simulation)
	clock := newFakeClock()

	eng := New(configs, workflows, led, gal, creds, Options{
		Clock: clock,
		Rand:  func() float64 { return 0 },
	})
	return &testEnv{engine: eng, ledger: led, gallery: gal, creds: creds, clock: clock}
}

func (e *testEnv) setCredential(t *testing.T, providerID string) {
	t.Helper()
	if err := e.creds.Set(context.Background(), providerID, credentials.Credential{Key: "test-key"}); err != nil {
		t.Fatalf("set credential: %v", err)
	}
}

func (e *testEnv) assertNoSideEffects(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	count, err := e.gallery.Count(ctx)
	if err != nil {
		t.Fatalf("gallery count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty gallery, got %d videos", count)
	}
	usage, err := e.ledger.Usage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if len(usage) != 0 {
		t.Errorf("expected no usage, got %+v", usage)
	}
	total, err := e.ledger.TotalCost(ctx)
	if err != nil {
		t.Fatalf("total cost: %v", err)
	}
	if total != 0 {
		t.Errorf("expected zero total cost, got %v", total)
	}
	history, err := e.ledger.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty cost history, got %+v", history)
	}
}
