// Package credentials stores provider credentials and the simulation-mode flag.
package credentials

import (
	"context"
	"strings"
	"sync"

	"github.com/vidsmith/vidsmith/internal/store"
)

// Credential is one provider credential. Most providers need only Key;
// Veo-style providers carry a service-account payload plus a project id.
type Credential struct {
	Key       string `json:"key"`
	ProjectID string `json:"project_id,omitempty"`
}

func (c Credential) Empty() bool {
	return strings.TrimSpace(c.Key) == ""
}

// Store persists the providerID -> credential map and the simulation-mode
// flag. A provider counts as configured when it has a credential or when
// simulation mode is on.
type Store struct {
	mu         sync.Mutex
	kv         store.Store
	defaultSim bool // used until the flag has been persisted once
}

func New(kv store.Store, defaultSimulation bool) *Store {
	return &Store{kv: kv, defaultSim: defaultSimulation}
}

func (s *Store) Set(ctx context.Context, providerID string, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.all(ctx)
	if err != nil {
		return err
	}
	creds[providerID] = cred
	return s.kv.Set(ctx, store.KeyCredentials, creds)
}

func (s *Store) Get(ctx context.Context, providerID string) (Credential, bool, error) {
	creds, err := s.all(ctx)
	if err != nil {
		return Credential{}, false, err
	}
	cred, ok := creds[providerID]
	if !ok || cred.Empty() {
		return Credential{}, false, nil
	}
	return cred, true, nil
}

// List returns the credential map. Callers rendering it must redact values.
func (s *Store) List(ctx context.Context) (map[string]Credential, error) {
	return s.all(ctx)
}

// Configured reports whether a generation may target the provider: a
// credential is present or simulation mode is active.
func (s *Store) Configured(ctx context.Context, providerID string) (bool, error) {
	sim, err := s.SimulationMode(ctx)
	if err != nil {
		return false, err
	}
	if sim {
		return true, nil
	}
	_, ok, err := s.Get(ctx, providerID)
	return ok, err
}

func (s *Store) SimulationMode(ctx context.Context) (bool, error) {
	var enabled bool
	found, err := s.kv.Get(ctx, store.KeySimulationMode, &enabled)
	if err != nil {
		return false, err
	}
	if !found {
		return s.defaultSim, nil
	}
	return enabled, nil
}

func (s *Store) SetSimulationMode(ctx context.Context, enabled bool) error {
	return s.kv.Set(ctx, store.KeySimulationMode, enabled)
}

func (s *Store) all(ctx context.Context) (map[string]Credential, error) {
	creds := make(map[string]Credential)
	if _, err := s.kv.Get(ctx, store.KeyCredentials, &creds); err != nil {
		return nil, err
	}
	return creds, nil
}
