package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/vidsmith/vidsmith/config"
)

func TestChooseBestPicksLowestMarginalCost(t *testing.T) {
	configs := []config.Provider{
		tariff("replicate", 0, 0.08),
		tariff("heygen", 60, 0.10),
	}
	env := newTestEnv(t, configs, nil, false)
	env.setCredential(t, "replicate")
	env.setCredential(t, "heygen")

	// 10 seconds fit inside heygen's free tier, so it beats replicate's
	// 0.80 despite the higher per-second rate.
	chosen, err := env.engine.ChooseBest(context.Background(), 10)
	if err != nil {
		t.Fatalf("ChooseBest: %v", err)
	}
	if chosen != "heygen" {
		t.Errorf("expected heygen, got %s", chosen)
	}
}

func TestChooseBestSkipsUnconfigured(t *testing.T) {
	configs := []config.Provider{
		tariff("heygen", 60, 0.10),
		tariff("replicate", 0, 0.08),
	}
	env := newTestEnv(t, configs, nil, false)
	env.setCredential(t, "replicate")

	chosen, err := env.engine.ChooseBest(context.Background(), 10)
	if err != nil {
		t.Fatalf("ChooseBest: %v", err)
	}
	if chosen != "replicate" {
		t.Errorf("expected replicate, got %s", chosen)
	}
}

func TestChooseBestTieGoesToFirst(t *testing.T) {
	configs := []config.Provider{
		tariff("veo", 3000, 0.12),
		tariff("heygen", 60, 0.10),
	}
	env := newTestEnv(t, configs, nil, false)
	env.setCredential(t, "veo")
	env.setCredential(t, "heygen")

	// Both estimate to zero; the first configured provider wins.
	chosen, err := env.engine.ChooseBest(context.Background(), 10)
	if err != nil {
		t.Fatalf("ChooseBest: %v", err)
	}
	if chosen != "veo" {
		t.Errorf("expected tie to resolve to veo, got %s", chosen)
	}
}

func TestChooseBestUsageShiftsSelection(t *testing.T) {
	configs := []config.Provider{
		tariff("heygen", 60, 0.10),
		tariff("replicate", 0, 0.08),
	}
	env := newTestEnv(t, configs, nil, false)
	env.setCredential(t, "heygen")
	env.setCredential(t, "replicate")
	ctx := context.Background()

	// Exhaust heygen's free tier; replicate's flat 0.08/s is now cheaper
	// than heygen's 0.10/s.
	if err := env.ledger.Record(ctx, "heygen", 60); err != nil {
		t.Fatalf("Record: %v", err)
	}

	chosen, err := env.engine.ChooseBest(ctx, 10)
	if err != nil {
		t.Fatalf("ChooseBest: %v", err)
	}
	if chosen != "replicate" {
		t.Errorf("expected replicate after free tier exhaustion, got %s", chosen)
	}
}

func TestChooseBestNoneConfigured(t *testing.T) {
	configs := []config.Provider{
		tariff("heygen", 60, 0.10),
	}
	env := newTestEnv(t, configs, nil, false)

	_, err := env.engine.ChooseBest(context.Background(), 10)
	if !errors.Is(err, ErrNoProviderConfigured) {
		t.Fatalf("expected ErrNoProviderConfigured, got %v", err)
	}
}

func TestChooseBestSimulationTreatsAllConfigured(t *testing.T) {
	configs := []config.Provider{
		tariff("replicate", 0, 0.08),
		tariff("veo", 3000, 0.12),
	}
	env := newTestEnv(t, configs, nil, true)

	chosen, err := env.engine.ChooseBest(context.Background(), 10)
	if err != nil {
		t.Fatalf("ChooseBest: %v", err)
	}
	if chosen != "veo" {
		t.Errorf("expected veo (free tier) under simulation, got %s", chosen)
	}
}
