package synthesia

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

// Client drives avatar video renders through the Synthesia v2 API.
// Avatar renders are slow, so this adapter carries a doubled poll budget.
type Client struct {
	baseURL string
}

type createRequest struct {
	Title string        `json:"title,omitempty"`
	Input []createScene `json:"input"`
	Test  bool          `json:"test"`
}

type createScene struct {
	ScriptText string `json:"scriptText"`
	Avatar     string `json:"avatar"`
	Background string `json:"background"`
}

type video struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Download  string `json:"download"`
	Thumbnail struct {
		Image string `json:"image"`
	} `json:"thumbnail"`
}

func New() *Client {
	return &Client{baseURL: "https://api.synthesia.io/v2"}
}

func (c *Client) Name() string { return "synthesia" }

func (c *Client) PollInterval() time.Duration { return 3 * time.Second }

func (c *Client) MaxPollAttempts() int { return 60 }

func (c *Client) Submit(ctx context.Context, req *provider.Request, cred credentials.Credential) (string, error) {
	body, err := json.Marshal(createRequest{
		Title: req.Prompt,
		Input: []createScene{{
			ScriptText: req.Prompt,
			Avatar:     "anna_costume1_cameraA",
			Background: "green_screen",
		}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/videos", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", cred.Key)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &provider.Error{Provider: c.Name(), StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var v video
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return "", err
	}
	if v.ID == "" {
		return "", fmt.Errorf("synthesia returned no video id")
	}
	return v.ID, nil
}

func (c *Client) Poll(ctx context.Context, jobID string, cred credentials.Credential) (*provider.PollResult, error) {
	url := fmt.Sprintf("%s/videos/%s", c.baseURL, jobID)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", cred.Key)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &provider.Error{Provider: c.Name(), StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var v video
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, err
	}

	switch v.Status {
	case "complete":
		return &provider.PollResult{
			Status:       provider.StatusSucceeded,
			MediaURL:     v.Download,
			ThumbnailURL: v.Thumbnail.Image,
		}, nil
	case "error", "rejected":
		return &provider.PollResult{Status: provider.StatusFailed, Message: v.Status}, nil
	default:
		// "in_progress" and queue states
		return &provider.PollResult{Status: provider.StatusPending}, nil
	}
}
