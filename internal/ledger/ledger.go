// Package ledger tracks per-provider consumed seconds and accrued cost.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vidsmith/vidsmith/config"
	"github.com/vidsmith/vidsmith/internal/store"
)

// ErrInvalidArgument is returned for negative usage increments.
var ErrInvalidArgument = errors.New("invalid argument")

// CostEntry is one append-only cost history record.
type CostEntry struct {
	Date     string  `json:"date"` // calendar day, YYYY-MM-DD
	Cost     float64 `json:"cost"`
	Provider string  `json:"provider"`
}

// Ledger records consumed seconds and cost per provider. All reads go through
// the store so that concurrent writers observe each other; mutating methods
// are serialized by an internal mutex (read-modify-write over a KV store).
type Ledger struct {
	mu sync.Mutex
	kv store.Store
}

func New(kv store.Store) *Ledger {
	return &Ledger{kv: kv}
}

// Consumed returns the recorded usage in seconds, 0 when absent.
func (l *Ledger) Consumed(ctx context.Context, providerID string) (float64, error) {
	usage, err := l.Usage(ctx)
	if err != nil {
		return 0, err
	}
	return usage[providerID], nil
}

// Usage returns the full providerID -> consumed seconds map.
func (l *Ledger) Usage(ctx context.Context) (map[string]float64, error) {
	usage := make(map[string]float64)
	if _, err := l.kv.Get(ctx, store.KeyUsage, &usage); err != nil {
		return nil, err
	}
	return usage, nil
}

// Record adds seconds to the provider's running total and persists it
// immediately. Negative increments fail with ErrInvalidArgument.
func (l *Ledger) Record(ctx context.Context, providerID string, seconds float64) error {
	if seconds < 0 {
		return fmt.Errorf("%w: negative usage increment %v for %s", ErrInvalidArgument, seconds, providerID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	usage, err := l.Usage(ctx)
	if err != nil {
		return err
	}
	usage[providerID] += seconds
	return l.kv.Set(ctx, store.KeyUsage, usage)
}

// RemainingFree returns the unconsumed free-tier allowance for the provider.
func (l *Ledger) RemainingFree(ctx context.Context, cfg config.Provider) (float64, error) {
	consumed, err := l.Consumed(ctx, cfg.ID)
	if err != nil {
		return 0, err
	}
	remaining := cfg.FreeLimitSeconds - consumed
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// Estimate computes the marginal cost of a requested duration against the
// current ledger state. It is the single source of truth for both
// pre-submission estimates and completion billing, and must therefore be
// called before the new duration is recorded.
func (l *Ledger) Estimate(ctx context.Context, cfg config.Provider, durationSeconds int) (float64, error) {
	free, err := l.RemainingFree(ctx, cfg)
	if err != nil {
		return 0, err
	}
	duration := float64(durationSeconds)
	if duration <= free {
		return 0, nil
	}
	return (duration - free) * cfg.Rate(), nil
}

// AppendCost appends one entry to the cost history.
func (l *Ledger) AppendCost(ctx context.Context, entry CostEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	history, err := l.history(ctx)
	if err != nil {
		return err
	}
	history = append(history, entry)
	return l.kv.Set(ctx, store.KeyCostHistory, history)
}

// History returns the cost history, oldest first.
func (l *Ledger) History(ctx context.Context) ([]CostEntry, error) {
	return l.history(ctx)
}

func (l *Ledger) history(ctx context.Context) ([]CostEntry, error) {
	var history []CostEntry
	if _, err := l.kv.Get(ctx, store.KeyCostHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// TotalCost returns the cumulative cost scalar.
func (l *Ledger) TotalCost(ctx context.Context) (float64, error) {
	var total float64
	if _, err := l.kv.Get(ctx, store.KeyTotalCost, &total); err != nil {
		return 0, err
	}
	return total, nil
}

// AddTotalCost adds delta to the cumulative cost scalar.
func (l *Ledger) AddTotalCost(ctx context.Context, delta float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var total float64
	if _, err := l.kv.Get(ctx, store.KeyTotalCost, &total); err != nil {
		return err
	}
	return l.kv.Set(ctx, store.KeyTotalCost, total+delta)
}

// Clear resets usage, cost history and the cumulative cost.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, key := range []string{store.KeyUsage, store.KeyCostHistory, store.KeyTotalCost} {
		if err := l.kv.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Restore overwrites the ledger state from an imported backup.
func (l *Ledger) Restore(ctx context.Context, usage map[string]float64, history []CostEntry, total float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if usage == nil {
		usage = make(map[string]float64)
	}
	if err := l.kv.Set(ctx, store.KeyUsage, usage); err != nil {
		return err
	}
	if err := l.kv.Set(ctx, store.KeyCostHistory, history); err != nil {
		return err
	}
	return l.kv.Set(ctx, store.KeyTotalCost, total)
}
