package veo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vidsmith/vidsmith/internal/credentials"
	"github.com/vidsmith/vidsmith/internal/provider"
)

// Client drives Veo renders through the Vertex AI long-running prediction
// API. The credential carries an access token plus the GCP project id.
type Client struct {
	baseURL string
	model   string
	region  string
}

type predictRequest struct {
	Instances  []instance `json:"instances"`
	Parameters parameters `json:"parameters"`
}

type instance struct {
	Prompt string `json:"prompt"`
	Image  *image `json:"image,omitempty"`
}

type image struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
}

type parameters struct {
	DurationSeconds int    `json:"durationSeconds"`
	AspectRatio     string `json:"aspectRatio"`
}

type operation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Error    *struct {
		Message string `json:"message"`
	} `json:"error"`
	Response *struct {
		Videos []struct {
			GcsURI string `json:"gcsUri"`
		} `json:"videos"`
	} `json:"response"`
}

func New() *Client {
	return &Client{
		baseURL: "https://us-central1-aiplatform.googleapis.com/v1",
		model:   "veo-2.0-generate-001",
		region:  "us-central1",
	}
}

func (c *Client) Name() string { return "veo" }

func (c *Client) PollInterval() time.Duration { return 2 * time.Second }

func (c *Client) MaxPollAttempts() int { return 30 }

func (c *Client) Submit(ctx context.Context, req *provider.Request, cred credentials.Credential) (string, error) {
	inst := instance{Prompt: req.Prompt}
	if req.ImageData != "" {
		inst.Image = &image{BytesBase64Encoded: req.ImageData}
	}
	body, err := json.Marshal(predictRequest{
		Instances: []instance{inst},
		Parameters: parameters{
			DurationSeconds: req.DurationSeconds,
			AspectRatio:     "16:9",
		},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/projects/%s/locations/%s/publishers/google/models/%s:predictLongRunning",
		c.baseURL, cred.ProjectID, c.region, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", cred.Key))

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &provider.Error{Provider: c.Name(), StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var op operation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return "", err
	}
	if op.Name == "" {
		return "", fmt.Errorf("veo returned no operation name")
	}
	return op.Name, nil
}

func (c *Client) Poll(ctx context.Context, jobID string, cred credentials.Credential) (*provider.PollResult, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, jobID)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", cred.Key))

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &provider.Error{Provider: c.Name(), StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var op operation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, err
	}

	if !op.Done {
		return &provider.PollResult{Status: provider.StatusPending}, nil
	}
	if op.Error != nil {
		return &provider.PollResult{Status: provider.StatusFailed, Message: op.Error.Message}, nil
	}

	var mediaURL string
	if op.Response != nil && len(op.Response.Videos) > 0 {
		mediaURL = op.Response.Videos[0].GcsURI
	}
	return &provider.PollResult{Status: provider.StatusSucceeded, MediaURL: mediaURL}, nil
}
