// Package lmcpsdk is a client for the linearmcp resolve API, plus the check
// downstream services run on deliveries the webhook relay forwards to them.
package lmcpsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal linearmcp HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, bearerToken string) *Client {
	return &Client{
		BaseURL:     baseURL,
		BasePath:    "/v0",
		BearerToken: bearerToken,
		Timeout:     10 * time.Second,
	}
}

// Classification is the offline shape of a reference.
type Classification struct {
	Ref     string `json:"ref"`
	Kind    string `json:"kind"`
	TeamKey string `json:"team_key,omitempty"`
	Number  uint64 `json:"number,omitempty"`
}

// Resolved is one reference resolved to a Linear ID.
type Resolved struct {
	Kind string `json:"kind"`
	Ref  string `json:"ref"`
	ID   string `json:"id"`
}

// Labels maps label names to IDs in input order.
type Labels struct {
	TeamID string   `json:"team_id,omitempty"`
	Names  []string `json:"names"`
	IDs    []string `json:"ids"`
}

// Health is the server's liveness report.
type Health struct {
	Status  string `json:"status"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// NotFound reports whether err is a 404 from the API.
func NotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// Health checks the server. It needs no token.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var resp Health
	err := c.do(ctx, http.MethodGet, "health", nil, nil, &resp)
	return resp, err
}

// Classify reports how the server would read ref, without calling Linear.
func (c *Client) Classify(ctx context.Context, ref string) (Classification, error) {
	var resp Classification
	err := c.do(ctx, http.MethodGet, "resolve/classify", url.Values{"ref": {ref}}, nil, &resp)
	return resp, err
}

// Issue resolves an issue ID or TEAM-NUMBER key.
func (c *Client) Issue(ctx context.Context, ref string) (Resolved, error) {
	return c.resolve(ctx, "issue", url.Values{"ref": {ref}})
}

// Team resolves a team key.
func (c *Client) Team(ctx context.Context, key string) (Resolved, error) {
	return c.resolve(ctx, "team", url.Values{"key": {key}})
}

// User resolves a user by email.
func (c *Client) User(ctx context.Context, email string) (Resolved, error) {
	return c.resolve(ctx, "user", url.Values{"email": {email}})
}

// State resolves a workflow state name or type within a team.
func (c *Client) State(ctx context.Context, teamKey, alias string) (Resolved, error) {
	return c.resolve(ctx, "state", url.Values{"team_key": {teamKey}, "alias": {alias}})
}

// Project resolves a project name within a team.
func (c *Client) Project(ctx context.Context, teamKey, name string) (Resolved, error) {
	return c.resolve(ctx, "project", url.Values{"team_key": {teamKey}, "name": {name}})
}

// Labels resolves label names. teamKey may be empty to search every team.
func (c *Client) Labels(ctx context.Context, teamKey string, names []string) (Labels, error) {
	body := map[string]any{"names": names}
	if teamKey != "" {
		body["team_key"] = teamKey
	}
	var resp Labels
	err := c.do(ctx, http.MethodPost, "resolve/labels", nil, body, &resp)
	return resp, err
}

func (c *Client) resolve(ctx context.Context, kind string, query url.Values) (Resolved, error) {
	var resp Resolved
	err := c.do(ctx, http.MethodGet, "resolve/"+kind, query, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	basePath := strings.Trim(c.BasePath, "/")
	if basePath == "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + basePath
}
