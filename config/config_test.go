package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultProviders(t *testing.T) {
	providers := DefaultProviders()
	if len(providers) != 4 {
		t.Fatalf("expected 4 built-in providers, got %d", len(providers))
	}

	byID := make(map[string]Provider)
	for _, p := range providers {
		byID[p.ID] = p
	}

	if got := byID["synthesia"].Rate(); got != 0.15 {
		t.Errorf("synthesia rate: expected after-limit 0.15, got %v", got)
	}
	if got := byID["replicate"].Rate(); got != 0.08 {
		t.Errorf("replicate rate: expected 0.08, got %v", got)
	}
	if byID["replicate"].FreeLimitSeconds != 0 {
		t.Errorf("replicate should have no free tier")
	}
	if byID["veo"].FreeLimitSeconds != 3000 {
		t.Errorf("veo free tier: expected 3000, got %v", byID["veo"].FreeLimitSeconds)
	}
}

func TestRatePrefersAfterLimit(t *testing.T) {
	after := 0.20
	p := Provider{CostPerSecond: 0.05, CostAfterLimitPerSecond: &after}
	if p.Rate() != 0.20 {
		t.Errorf("expected after-limit rate 0.20, got %v", p.Rate())
	}

	p = Provider{CostPerSecond: 0.05}
	if p.Rate() != 0.05 {
		t.Errorf("expected base rate 0.05, got %v", p.Rate())
	}
}

func TestLoadProviders(t *testing.T) {
	t.Setenv("TEST_TARIFF_RATE", "0.42")

	path := filepath.Join(t.TempDir(), "providers.yaml")
	doc := `providers:
  - id: custom
    name: Custom ${TEST_TARIFF_RATE}
    free_limit_seconds: 120
    cost_per_second: 0.42
    quality: high
    features: [text-to-video]
    requires_credential: true
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write tariff file: %v", err)
	}

	providers, err := LoadProviders(path)
	if err != nil {
		t.Fatalf("LoadProviders: %v", err)
	}
	if len(providers) != 1 {
		t.Fatalf("expected 1 provider, got %d", len(providers))
	}
	p := providers[0]
	if p.ID != "custom" || p.FreeLimitSeconds != 120 {
		t.Errorf("unexpected provider: %+v", p)
	}
	if p.Name != "Custom 0.42" {
		t.Errorf("env expansion failed: %q", p.Name)
	}
}

func TestLoadProvidersRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	if err := os.WriteFile(path, []byte("providers: []\n"), 0o600); err != nil {
		t.Fatalf("write tariff file: %v", err)
	}

	if _, err := LoadProviders(path); err == nil {
		t.Error("expected error for a tariff file with no providers")
	}
}

func TestLoadProvidersRejectsMissingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	doc := `providers:
  - name: Anonymous
    cost_per_second: 0.10
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write tariff file: %v", err)
	}

	if _, err := LoadProviders(path); err == nil {
		t.Error("expected error for a provider without an id")
	}
}

func TestLoadValidatesBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown store backend")
	}

	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "")
	if _, err := Load(); err == nil {
		t.Error("expected error for redis backend without REDIS_ADDR")
	}

	t.Setenv("STORE_BACKEND", "memory")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.GenerationsPerMinute != 6 {
		t.Errorf("expected default rate limit 6, got %d", cfg.GenerationsPerMinute)
	}
	if len(cfg.Providers) != 4 {
		t.Errorf("expected built-in tariffs, got %d providers", len(cfg.Providers))
	}
}
