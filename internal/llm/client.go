// Package llm is a minimal client for OpenAI-compatible chat-completion endpoints
// such as vLLM.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/YusovID/pr-analytics-service/internal/apperrors"
	"github.com/YusovID/pr-analytics-service/internal/config"
)

const maxErrorBody = 512

var ErrEmptyResponse = errors.New("no choices in completion response")

type Client struct {
	url    string
	model  string
	apiKey string
	client *http.Client
}

func NewClient(cfg config.LLM) *Client {
	return &Client{
		url:    cfg.URL,
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Model() string { return c.model }

// Complete sends prompt as a single user turn and returns the text of the first
// choice. Transport problems come back as *apperrors.TransportError.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	const op = "internal.llm.Complete"

	payload, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("%s: failed to marshal request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &apperrors.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &apperrors.TransportError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}

		return "", &apperrors.TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(string(body))}
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, apperrors.ErrParse, err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}

	return result.Choices[0].Message.Content, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}
