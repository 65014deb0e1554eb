package store

import (
	"context"
	"testing"
)

func TestMemoryRoundTrip(t *testing.T) {
	kv := NewMemory()
	ctx := context.Background()

	type record struct {
		Name  string  `json:"name"`
		Count float64 `json:"count"`
	}

	if err := kv.Set(ctx, "k", record{Name: "a", Count: 2.5}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got record
	found, err := kv.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected key to be found")
	}
	if got.Name != "a" || got.Count != 2.5 {
		t.Errorf("unexpected value: %+v", got)
	}
}

func TestMemoryMissingKey(t *testing.T) {
	kv := NewMemory()

	var got string
	found, err := kv.Get(context.Background(), "absent", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("expected absent key to report not found")
	}
}

func TestMemoryCorruptValueReportsAbsent(t *testing.T) {
	kv := NewMemory()
	ctx := context.Background()

	if err := kv.Set(ctx, "k", "not a number"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Type mismatch on read behaves like an absent key, so callers fall
	// back to their zero state instead of failing.
	var got float64
	found, err := kv.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("expected corrupt value to report not found")
	}
}

func TestMemoryDelete(t *testing.T) {
	kv := NewMemory()
	ctx := context.Background()

	if err := kv.Set(ctx, "k", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := kv.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var got int
	found, err := kv.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("expected deleted key to report not found")
	}

	// Deleting a missing key is a no-op.
	if err := kv.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}
