// Package gallery owns the persisted video artifact collection.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vidsmith/vidsmith/internal/store"
)

var ErrNotFound = errors.New("video not found")

// Video is one completed generation artifact. Immutable once created except
// for deletion and duplication.
type Video struct {
	ID              string    `json:"id"`
	MediaURL        string    `json:"media_url"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	DurationSeconds int       `json:"duration_seconds"`
	Quality         string    `json:"quality"`
	Provider        string    `json:"provider"`
	Prompt          string    `json:"prompt"`
	Style           string    `json:"style"`
	Kind            string    `json:"kind"`
	CreatedAt       time.Time `json:"created_at"`
	Cost            float64   `json:"cost"`
}

// NewID returns a fresh time-derived artifact id.
func NewID() string {
	return fmt.Sprintf("video_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// Gallery stores videos most-recent-first under a single key.
type Gallery struct {
	mu sync.Mutex
	kv store.Store
}

func New(kv store.Store) *Gallery {
	return &Gallery{kv: kv}
}

// List returns all videos, most recent first.
func (g *Gallery) List(ctx context.Context) ([]Video, error) {
	return g.list(ctx)
}

func (g *Gallery) list(ctx context.Context) ([]Video, error) {
	var videos []Video
	if _, err := g.kv.Get(ctx, store.KeyVideos, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// Count returns the number of stored videos.
func (g *Gallery) Count(ctx context.Context) (int, error) {
	videos, err := g.list(ctx)
	if err != nil {
		return 0, err
	}
	return len(videos), nil
}

// Prepend stores a new video at the head of the collection.
func (g *Gallery) Prepend(ctx context.Context, v Video) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	videos, err := g.list(ctx)
	if err != nil {
		return err
	}
	videos = append([]Video{v}, videos...)
	return g.kv.Set(ctx, store.KeyVideos, videos)
}

func (g *Gallery) Get(ctx context.Context, id string) (Video, error) {
	videos, err := g.list(ctx)
	if err != nil {
		return Video{}, err
	}
	for _, v := range videos {
		if v.ID == id {
			return v, nil
		}
	}
	return Video{}, ErrNotFound
}

func (g *Gallery) Delete(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	videos, err := g.list(ctx)
	if err != nil {
		return err
	}
	for i, v := range videos {
		if v.ID == id {
			videos = append(videos[:i], videos[i+1:]...)
			return g.kv.Set(ctx, store.KeyVideos, videos)
		}
	}
	return ErrNotFound
}

// Duplicate copies an existing video under a fresh id and timestamp and
// prepends the copy.
func (g *Gallery) Duplicate(ctx context.Context, id string) (Video, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	videos, err := g.list(ctx)
	if err != nil {
		return Video{}, err
	}
	for _, v := range videos {
		if v.ID != id {
			continue
		}
		dup := v
		dup.ID = NewID()
		dup.CreatedAt = time.Now().UTC()
		dup.Prompt = v.Prompt + " (copy)"
		videos = append([]Video{dup}, videos...)
		if err := g.kv.Set(ctx, store.KeyVideos, videos); err != nil {
			return Video{}, err
		}
		return dup, nil
	}
	return Video{}, ErrNotFound
}

// Clear removes every video.
func (g *Gallery) Clear(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.kv.Set(ctx, store.KeyVideos, []Video{})
}

// Replace overwrites the collection, used by backup import in replace mode.
func (g *Gallery) Replace(ctx context.Context, videos []Video) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if videos == nil {
		videos = []Video{}
	}
	return g.kv.Set(ctx, store.KeyVideos, videos)
}

// Merge appends imported videos after the current ones, skipping ids that
// already exist.
func (g *Gallery) Merge(ctx context.Context, imported []Video) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	videos, err := g.list(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(videos))
	for _, v := range videos {
		seen[v.ID] = true
	}
	for _, v := range imported {
		if !seen[v.ID] {
			videos = append(videos, v)
			seen[v.ID] = true
		}
	}
	return g.kv.Set(ctx, store.KeyVideos, videos)
}
