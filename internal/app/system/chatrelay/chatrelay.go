// internal/app/system/chatrelay/chatrelay.go

// Package chatrelay talks to the external floatChat answer API. The
// browser never calls that API directly; handlers relay through here so
// answers can be rendered and sanitized server-side.
package chatrelay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultModel is sent upstream when no model is configured.
const DefaultModel = "mistralai/mistral-7b-instruct:free"

// Error is a failure reported by the upstream API.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("chat api: %s (status %d)", e.Detail, e.StatusCode)
	}
	return fmt.Sprintf("chat api: status %d", e.StatusCode)
}

// Client relays questions to the answer API.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
	log     *zap.Logger
}

// New builds a client. baseURL is the upstream origin; the request path is
// fixed by the upstream contract.
func New(baseURL, model string, timeout time.Duration, logger *zap.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}
}

type askRequest struct {
	Query string `json:"query"`
	Model string `json:"model"`
}

type askResponse struct {
	Answer string `json:"answer"`
	Detail string `json:"detail"`
}

// Ask sends the query upstream and returns the Markdown answer. Upstream
// failures come back as *Error with the upstream detail message.
func (c *Client) Ask(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(askRequest{Query: query, Model: c.model})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call chat api: %w", err)
	}
	defer resp.Body.Close()

	var parsed askResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", &Error{StatusCode: resp.StatusCode}
		}
		return "", fmt.Errorf("decode chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &Error{StatusCode: resp.StatusCode, Detail: parsed.Detail}
	}
	if parsed.Answer == "" {
		return "", fmt.Errorf("chat api returned empty answer")
	}

	return parsed.Answer, nil
}
