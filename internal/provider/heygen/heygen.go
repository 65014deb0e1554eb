package heygen

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

// Client drives video renders through the HeyGen v2 generate / v1 status APIs.
type Client struct {
	baseURL string
}

type createRequest struct {
	VideoInputs []videoInput `json:"video_inputs"`
	Dimension   dimension    `json:"dimension"`
}

type videoInput struct {
	Character character `json:"character"`
	Voice     voice     `json:"voice"`
}

type character struct {
	Type     string `json:"type"`
	AvatarID string `json:"avatar_id"`
}

type voice struct {
	Type      string `json:"type"`
	InputText string `json:"input_text"`
	VoiceID   string `json:"voice_id"`
}

type dimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type createResponse struct {
	Data struct {
		VideoID string `json:"video_id"`
	} `json:"data"`
}

type statusResponse struct {
	Data struct {
		Status       string `json:"status"`
		VideoURL     string `json:"video_url"`
		ThumbnailURL string `json:"thumbnail_url"`
		Error        struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"data"`
}

func New() *Client {
	return &Client{baseURL: "https://api.heygen.com"}
}

func (c *Client) Name() string { return "heygen" }

func (c *Client) PollInterval() time.Duration { return 3 * time.Second }

func (c *Client) MaxPollAttempts() int { return 30 }

func (c *Client) Submit(ctx context.Context, req *provider.Request, cred credentials.Credential) (string, error) {
	body, err := json.Marshal(createRequest{
		VideoInputs: []videoInput{{
			Character: character{Type: "avatar", AvatarID: "default"},
			Voice:     voice{Type: "text", InputText: req.Prompt, VoiceID: "default"},
		}},
		Dimension: dimension{Width: 1280, Height: 720},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v2/video/generate", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", cred.Key)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &provider.Error{Provider: c.Name(), StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}
	if created.Data.VideoID == "" {
		return "", fmt.Errorf("heygen returned no video id")
	}
	return created.Data.VideoID, nil
}

func (c *Client) Poll(ctx context.Context, jobID string, cred credentials.Credential) (*provider.PollResult, error) {
	url := fmt.Sprintf("%s/v1/video_status.get?video_id=%s", c.baseURL, jobID)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-Api-Key", cred.Key)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &provider.Error{Provider: c.Name(), StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}

	switch status.Data.Status {
	case "completed":
		return &provider.PollResult{
			Status:       provider.StatusSucceeded,
			MediaURL:     status.Data.VideoURL,
			ThumbnailURL: status.Data.ThumbnailURL,
		}, nil
	case "failed":
		return &provider.PollResult{Status: provider.StatusFailed, Message: status.Data.Error.Message}, nil
	default:
		// "processing", "pending", "waiting"
		return &provider.PollResult{Status: provider.StatusPending}, nil
	}
}
