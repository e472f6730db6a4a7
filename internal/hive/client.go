// Package hive proxies the two AI features to an OpenAI-compatible
// chat-completions gateway: Ask Hive (event recommendations) and Magic Fill
// (event details from a social media caption).
package hive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	appLog "hive/internal/log"
	"hive/internal/metrics"
)

var (
	// ErrNotConfigured means no gateway API key is set.
	ErrNotConfigured = errors.New("hive: AI gateway key is not configured")
	// ErrInvalidRequest means the caller sent an empty question or caption.
	ErrInvalidRequest = errors.New("hive: invalid request")
	// ErrRateLimited is the gateway's 429.
	ErrRateLimited = errors.New("hive: rate limit exceeded")
	// ErrCreditsExhausted is the gateway's 402.
	ErrCreditsExhausted = errors.New("hive: AI credits exhausted")
)

// GatewayError is any other failure of the gateway round trip: a non-2xx
// status, or a 2xx body that does not carry what the feature needs.
type GatewayError struct {
	Feature string
	Status  int
	Body    string
}

func (e *GatewayError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("hive %s: %s", e.Feature, e.Body)
	}
	return fmt.Sprintf("hive %s: gateway HTTP %d: %s", e.Feature, e.Status, e.Body)
}

// Config configures a Client.
type Config struct {
	URL     string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// Client is a single-round-trip chat-completions client. It never retries.
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Client{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout, Transport: tr}}
}

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

type message struct {
	Role    string     `json:"role"`
	Content string     `json:"content"`
	Calls   []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type tool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type toolChoice struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type completionRequest struct {
	Model       string      `json:"model"`
	Messages    []message   `json:"messages"`
	Tools       []tool      `json:"tools,omitempty"`
	ToolChoice  *toolChoice `json:"tool_choice,omitempty"`
	Temperature float64     `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// complete sends one chat-completions request and returns the first choice.
// A response with no choices yields an empty message.
func (c *Client) complete(ctx context.Context, feature string, body completionRequest) (msg message, err error) {
	start := time.Now()
	defer func() {
		metrics.Since(metrics.GatewayDuration.WithLabelValues(feature), start)
		metrics.GatewayRequests.WithLabelValues(feature, gatewayOutcome(err)).Inc()
		if err != nil {
			appLog.Error("ai gateway request failed", err, "feature", feature, "elapsed", time.Since(start))
		} else {
			appLog.Debug("ai gateway request", "feature", feature, "elapsed", time.Since(start))
		}
	}()

	if !c.Configured() {
		return message{}, ErrNotConfigured
	}
	body.Model = c.cfg.Model

	data, err := json.Marshal(body)
	if err != nil {
		return message{}, fmt.Errorf("hive %s: encode: %w", feature, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return message{}, fmt.Errorf("hive %s: %w", feature, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return message{}, fmt.Errorf("hive %s: %w", feature, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return message{}, fmt.Errorf("hive %s: read body: %w", feature, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return message{}, ErrRateLimited
	case resp.StatusCode == http.StatusPaymentRequired:
		return message{}, ErrCreditsExhausted
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return message{}, &GatewayError{Feature: feature, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return message{}, &GatewayError{Feature: feature, Status: resp.StatusCode, Body: "undecodable response: " + err.Error()}
	}
	if len(out.Choices) == 0 {
		return message{}, nil
	}
	return out.Choices[0].Message, nil
}

func gatewayOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrCreditsExhausted):
		return "credits_exhausted"
	case errors.Is(err, ErrNotConfigured), errors.Is(err, ErrInvalidRequest):
		return "rejected"
	default:
		return "error"
	}
}
