// Package store talks to the hosted backend (a PostgREST endpoint) that owns
// events and societies. Calls are single round trips with no retry; failures
// come back as typed errors for the caller to surface.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	appLog "hive/internal/log"
	"hive/internal/metrics"
	"hive/internal/model"
)

const (
	eventSelect   = "*,societies(id,name,logo_url)"
	societySelect = "id,name,description,logo_url"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("store: not found")

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("store %s: HTTP %d: %s", e.Op, e.Status, e.Body)
}

// Client is a PostgREST client for the events and societies tables.
type Client struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
}

// NewClient returns a client for the REST root at baseURL (for example
// "https://project.supabase.co/rest/v1"). apiKey is sent both as the apikey
// header and as a bearer token.
func NewClient(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("store: base URL is empty")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("store: parse base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: u,
		apiKey:  apiKey,
		client:  newHTTPClient(timeout),
	}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// EventQuery narrows ListEvents. Zero values add no predicate.
type EventQuery struct {
	SocietyID string
	// Descending orders by starts_at newest first.
	Descending bool
}

func (q EventQuery) values() url.Values {
	v := url.Values{}
	v.Set("select", eventSelect)
	if q.SocietyID != "" {
		v.Set("society_id", "eq."+q.SocietyID)
	}
	if q.Descending {
		v.Set("order", "starts_at.desc")
	} else {
		v.Set("order", "starts_at.asc")
	}
	return v
}

// ListEvents returns events with their society summaries.
func (c *Client) ListEvents(ctx context.Context, q EventQuery) ([]model.Event, error) {
	var out []model.Event
	if err := c.do(ctx, "list_events", http.MethodGet, "events", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Events lists every event in start order.
func (c *Client) Events(ctx context.Context) ([]model.Event, error) {
	return c.ListEvents(ctx, EventQuery{})
}

// GetEvent returns the event with the given id.
func (c *Client) GetEvent(ctx context.Context, id string) (model.Event, error) {
	v := url.Values{}
	v.Set("select", eventSelect)
	v.Set("id", "eq."+id)

	var out []model.Event
	if err := c.do(ctx, "get_event", http.MethodGet, "events", v, nil, &out); err != nil {
		return model.Event{}, err
	}
	if len(out) == 0 {
		return model.Event{}, ErrNotFound
	}
	return out[0], nil
}

// CreateEvent inserts row and returns the stored event.
func (c *Client) CreateEvent(ctx context.Context, row model.EventWrite) (model.Event, error) {
	v := url.Values{}
	v.Set("select", eventSelect)

	var out []model.Event
	if err := c.do(ctx, "create_event", http.MethodPost, "events", v, row, &out); err != nil {
		return model.Event{}, err
	}
	if len(out) == 0 {
		return model.Event{}, errors.New("store create_event: empty representation")
	}
	return out[0], nil
}

// UpdateEvent replaces the editable fields of event id.
func (c *Client) UpdateEvent(ctx context.Context, id string, row model.EventWrite) (model.Event, error) {
	v := url.Values{}
	v.Set("select", eventSelect)
	v.Set("id", "eq."+id)

	var out []model.Event
	if err := c.do(ctx, "update_event", http.MethodPatch, "events", v, row, &out); err != nil {
		return model.Event{}, err
	}
	if len(out) == 0 {
		return model.Event{}, ErrNotFound
	}
	return out[0], nil
}

// DeleteEvent removes event id.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	v := url.Values{}
	v.Set("id", "eq."+id)

	var out []model.Event
	if err := c.do(ctx, "delete_event", http.MethodDelete, "events", v, nil, &out); err != nil {
		return err
	}
	if len(out) == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSocieties returns the public fields of every society, ordered by name.
func (c *Client) ListSocieties(ctx context.Context) ([]model.Society, error) {
	v := url.Values{}
	v.Set("select", societySelect)
	v.Set("order", "name.asc")

	var out []model.Society
	if err := c.do(ctx, "list_societies", http.MethodGet, "societies", v, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSociety returns the public fields of society id.
func (c *Client) GetSociety(ctx context.Context, id string) (model.Society, error) {
	v := url.Values{}
	v.Set("select", societySelect)
	v.Set("id", "eq."+id)

	var out []model.Society
	if err := c.do(ctx, "get_society", http.MethodGet, "societies", v, nil, &out); err != nil {
		return model.Society{}, err
	}
	if len(out) == 0 {
		return model.Society{}, ErrNotFound
	}
	return out[0], nil
}

func (c *Client) do(ctx context.Context, op, method, table string, query url.Values, body, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.StoreRequests.WithLabelValues(op, metrics.Outcome(err)).Inc()
		if err != nil {
			appLog.Error("store request failed", err, "op", op, "elapsed", time.Since(start))
		} else {
			appLog.Debug("store request", "op", op, "elapsed", time.Since(start))
		}
	}()

	u := *c.baseURL
	u.Path = u.Path + "/" + table
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		data, merr := json.Marshal(body)
		if merr != nil {
			return fmt.Errorf("store %s: encode body: %w", op, merr)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("store %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("store %s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("store %s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("store %s: decode: %w", op, err)
	}
	return nil
}
