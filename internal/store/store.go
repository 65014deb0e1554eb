// Package store provides the JSON key-value persistence layer.
//
// All application state (videos, usage, cost history, credentials, settings)
// lives under a handful of well-known keys. Readers treat a missing or
// unreadable value as "not found" and fall back to a default, so a corrupt
// entry can never take the service down.
package store

import "context"

// Well-known keys.
const (
	KeyVideos         = "videos"
	KeyUsage          = "usage"
	KeyCostHistory    = "cost_history"
	KeyTotalCost      = "total_cost"
	KeyCredentials    = "credentials"
	KeySimulationMode = "simulation_mode"
)

// Store is a key-value store with JSON-serialized values.
type Store interface {
	// Get unmarshals the value for key into dest. It returns false when the
	// key is absent or its value cannot be decoded; dest is left untouched.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set marshals value as JSON and stores it under key.
	Set(ctx context.Context, key string, value any) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
