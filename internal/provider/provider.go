package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/vidsmith/vidsmith/internal/credentials"
)

// Kind selects the generation input shape.
type Kind string

const (
	KindTextToVideo  Kind = "text-to-video"
	KindImageToVideo Kind = "image-to-video"
)

// Status is the normalized job status every adapter maps its provider's
// status enum onto.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Request carries the caller's generation parameters to an adapter.
type Request struct {
	Prompt          string
	DurationSeconds int
	Quality         string
	Style           string
	Kind            Kind
	ImageData       string // base64 source image, required for image-to-video
	RequestID       string
}

// PollResult is the normalized shape every adapter must produce from a
// status poll.
type PollResult struct {
	Status       Status
	MediaURL     string
	ThumbnailURL string
	Message      string // provider error detail when Status is failed
}

// Workflow is the per-provider capability set the generation engine drives.
// Submit issues the creation request and returns a provider job id; Poll
// queries that job until a terminal status. Both must honor ctx cancellation.
type Workflow interface {
	Name() string
	Submit(ctx context.Context, req *Request, cred credentials.Credential) (string, error)
	Poll(ctx context.Context, jobID string, cred credentials.Credential) (*PollResult, error)

	// PollInterval is the fixed inter-poll delay.
	PollInterval() time.Duration

	// MaxPollAttempts bounds the poll loop; exceeding it times the job out.
	MaxPollAttempts() int
}

// Error is a classified provider failure: a non-2xx submit or poll response,
// or a terminal failed status (StatusCode 0).
type Error struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: generation failed: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// PlaceholderThumbnail returns a generated thumbnail URL for providers that
// do not supply one.
func PlaceholderThumbnail() string {
	return fmt.Sprintf("https://picsum.photos/320/180?random=%d", time.Now().UnixMilli())
}
