package example

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const maxAttempts = 4

var errNoChoices = errors.New("llm response has no choices")

// Refinement is a skeleton rewritten by the model with realistic values.
type Refinement struct {
	Value  any
	Tokens int
}

// Refiner turns a JSON skeleton into a realistic example of the same shape.
type Refiner interface {
	Refine(ctx context.Context, req Request, skeleton string) (Refinement, error)
}

// StatusError is a non-2xx answer from the completions endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm error status %d: %s", e.Code, e.Body)
}

// Client refines example skeletons through an OpenAI-compatible chat
// completions endpoint. Throttled and 5xx answers are retried with
// exponential backoff, honoring Retry-After.
type Client struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionRequest struct {
	Model          string          `json:"model"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// sleep waits d or until ctx is done. Tests replace it.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Refine asks the model to fill skeleton with realistic values and parses
// the answer. Object skeletons request a JSON object response.
func (c *Client) Refine(ctx context.Context, req Request, skeleton string) (Refinement, error) {
	user := BuildUserPrompt(req, skeleton)
	payload := completionRequest{
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: BuildSystemPrompt()},
			{Role: "user", Content: user},
		},
	}
	if strings.HasPrefix(strings.TrimSpace(skeleton), "{") {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Refinement{}, err
	}
	c.logger().Debug("refining example", "operation", req.Operation, "role", req.Role, "model", c.Model, "prompt_tokens", EstimateTokens(systemPrompt+user))

	data, err := c.post(ctx, body)
	if err != nil {
		return Refinement{}, err
	}
	var out completionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return Refinement{}, fmt.Errorf("decode llm response: %w", err)
	}
	if len(out.Choices) == 0 {
		return Refinement{}, errNoChoices
	}
	content := out.Choices[0].Message.Content
	value, err := ParseJSON(stripMarkdownCodeBlock(content))
	if err != nil {
		return Refinement{}, fmt.Errorf("parse refined example: %w", err)
	}
	tokens := out.Usage.TotalTokens
	if tokens == 0 {
		tokens = EstimateTokens(systemPrompt + user + content)
	}
	return Refinement{Value: value, Tokens: tokens}, nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	var lastErr error
	for attempt := 0; ; attempt++ {
		data, retryAfter, err := c.send(ctx, endpoint, body)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var se *StatusError
		if errors.As(err, &se) && se.Code != http.StatusTooManyRequests && se.Code < 500 {
			return nil, err
		}
		lastErr = err
		if attempt == maxAttempts-1 {
			return nil, lastErr
		}
		wait := backoff(attempt)
		if retryAfter > 0 {
			wait = retryAfter
		}
		c.logger().Debug("retrying llm request", "attempt", attempt+1, "wait", wait, "error", err)
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// send performs one request. retryAfter is set from the Retry-After header
// of a 429 answer.
func (c *Client) send(ctx context.Context, endpoint string, body []byte) (data []byte, retryAfter time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, 0, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil {
			retryAfter = time.Duration(secs) * time.Second
		}
	}
	return nil, retryAfter, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 120 * time.Second}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// stripMarkdownCodeBlock removes a ``` fence some models wrap JSON in.
func stripMarkdownCodeBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx != -1 {
		trimmed = trimmed[idx+1:]
	}
	if end := strings.LastIndex(trimmed, "```"); end != -1 {
		trimmed = trimmed[:end]
	}
	return strings.TrimSpace(trimmed)
}

func backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return time.Second << attempt
}
