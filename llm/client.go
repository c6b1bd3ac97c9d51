// Package llm talks to the chat-completion HTTP API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"smartdraft/config"
	"smartdraft/utils"

	"github.com/valyala/fasthttp"
)

// Fixed generation parameters
const (
	MaxTokens   = 1000
	Temperature = 0.7
)

// Message is one chat turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Client issues single, non-retried calls to the completion API
type Client struct {
	baseURL string
	model   string
	timeout time.Duration
	http    *fasthttp.Client
}

// NewClient builds a client from the [openai] config section
func NewClient(cfg config.OpenAIConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		timeout: cfg.Timeout(),
		http: &fasthttp.Client{
			Name:                "smartdraft",
			MaxIdleConnDuration: time.Minute,
		},
	}
}

// Model returns the model id sent with every completion
func (c *Client) Model() string {
	return c.model
}

// Complete sends one chat completion and returns the assistant text.
// The wait is bounded by the client timeout (or ctx's deadline, if sooner); the
// in-flight request is not cancelled when the wait gives up.
func (c *Client) Complete(ctx context.Context, apiKey, system, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   MaxTokens,
		Temperature: Temperature,
	})
	if err != nil {
		return "", utils.InternalServerError("failed to encode completion request", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/chat/completions")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.SetBody(body)

	if err := c.do(ctx, req, resp); err != nil {
		return "", err
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return "", utils.UpstreamError(status)
	}

	var parsed completionResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", utils.NewAppError(502, utils.KindUpstream, "invalid completion response", err).
			WithContext("status", status)
	}
	if len(parsed.Choices) == 0 {
		return "", utils.NewAppError(502, utils.KindUpstream, "completion response has no choices", nil).
			WithContext("status", status)
	}

	return parsed.Choices[0].Message.Content, nil
}

// ListModels issues the authenticated GET used by the connectivity probe and returns the status code
func (c *Client) ListModels(ctx context.Context, apiKey string) (int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/models")
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	if err := c.do(ctx, req, resp); err != nil {
		return 0, err
	}
	return resp.StatusCode(), nil
}

func (c *Client) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return utils.TimeoutError("Request timeout - please try again")
		}
		// caller went away before the request was sent
		return utils.NetworkError(fmt.Errorf("%s %s: %w", req.Header.Method(), req.URI().Path(), err))
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	err := c.http.DoDeadline(req, resp, deadline)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fasthttp.ErrTimeout):
		return utils.TimeoutError("Request timeout - please try again")
	default:
		return utils.NetworkError(fmt.Errorf("%s %s: %w", req.Header.Method(), req.URI().Path(), err))
	}
}
