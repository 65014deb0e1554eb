package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/vidsmith/vidsmith/config"
	"github.com/vidsmith/vidsmith/internal/provider"
)

// Simulation bypasses network I/O entirely: it walks a fixed sequence of
// cosmetic progress steps with randomized delays and always succeeds,
// returning a synthesized artifact. Billing still runs through the
// estimator so simulated runs exercise the cost path.

var simulationSteps = []struct {
	Percent int
	Message string
}{
	{10, "Connecting to %s... (simulation)"},
	{25, "Processing prompt... (simulation)"},
	{40, "Generating frames... (simulation)"},
	{60, "Applying effects... (simulation)"},
	{80, "Rendering video... (simulation)"},
	{95, "Finalizing... (simulation)"},
}

var sampleVideos = []string{
	"https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4",
	"https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/ElephantsDream.mp4",
	"https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/ForBiggerBlazes.mp4",
	"https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/ForBiggerEscapes.mp4",
	"https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/ForBiggerFun.mp4",
	"https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/Sintel.mp4",
}

func (e *Engine) simulate(ctx context.Context, cfg config.Provider, onProgress ProgressFunc) (*provider.PollResult, error) {
	for i, step := range simulationSteps {
		// 1000-3000 ms per step, uniformly distributed
		delay := time.Second + time.Duration(e.rand()*2000)*time.Millisecond
		if err := e.clock.Sleep(ctx, delay); err != nil {
			return nil, err
		}
		msg := step.Message
		if i == 0 {
			msg = fmt.Sprintf(step.Message, cfg.Name)
		}
		onProgress(step.Percent, msg)
	}

	idx := int(e.rand() * float64(len(sampleVideos)))
	if idx >= len(sampleVideos) {
		idx = len(sampleVideos) - 1
	}
	return &provider.PollResult{
		Status:       provider.StatusSucceeded,
		MediaURL:     sampleVideos[idx],
		ThumbnailURL: provider.PlaceholderThumbnail(),
	}, nil
}
