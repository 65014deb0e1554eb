package replicate

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

// Client drives video predictions through the Replicate predictions API.
type Client struct {
	baseURL string
	model   string
}

type createRequest struct {
	Version string      `json:"version"`
	Input   createInput `json:"input"`
}

type createInput struct {
	Prompt          string `json:"prompt"`
	FirstFrameImage string `json:"first_frame_image,omitempty"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

func New() *Client {
	return &Client{
		baseURL: "https://api.replicate.com/v1",
		model:   "minimax/video-01",
	}
}

func (c *Client) Name() string { return "replicate" }

func (c *Client) PollInterval() time.Duration { return 2 * time.Second }

func (c *Client) MaxPollAttempts() int { return 30 }

func (c *Client) Submit(ctx context.Context, req *provider.Request, cred credentials.Credential) (string, error) {
	body, err := json.Marshal(createRequest{
		Version: c.model,
		Input: createInput{
			Prompt:          req.Prompt,
			FirstFrameImage: req.ImageData,
		},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/predictions", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Token %s", cred.Key))

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &provider.Error{Provider: c.Name(), StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var pred prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return "", err
	}
	if pred.ID == "" {
		return "", fmt.Errorf("replicate returned no prediction id")
	}
	return pred.ID, nil
}

func (c *Client) Poll(ctx context.Context, jobID string, cred credentials.Credential) (*provider.PollResult, error) {
	url := fmt.Sprintf("%s/predictions/%s", c.baseURL, jobID)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("Token %s", cred.Key))

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &provider.Error{Provider: c.Name(), StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var pred prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, err
	}

	switch pred.Status {
	case "succeeded":
		return &provider.PollResult{
			Status:   provider.StatusSucceeded,
			MediaURL: firstOutputURL(pred.Output),
		}, nil
	case "failed", "canceled":
		return &provider.PollResult{Status: provider.StatusFailed, Message: pred.Error}, nil
	default:
		return &provider.PollResult{Status: provider.StatusPending}, nil
	}
}

// firstOutputURL handles the two output shapes Replicate models produce:
// a list of URLs or a single URL string.
func firstOutputURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) > 0 {
			return list[0]
		}
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	return ""
}
