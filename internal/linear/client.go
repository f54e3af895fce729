package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	maxErrorBody = 4096
	// MaxResponseBytes caps how much of a Linear response is read.
	MaxResponseBytes = 16 << 20
)

// sharedHTTPClient backs clients built without an HTTPClient so connections
// are reused across queries. Per-query deadlines come from Timeout.
var sharedHTTPClient = &http.Client{}

// Client is a minimal Linear GraphQL client.
type Client struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     logrus.FieldLogger
}

// New creates a client with sane defaults.
func New(url, apiKey string) *Client {
	return &Client{
		URL:        url,
		APIKey:     apiKey,
		HTTPClient: sharedHTTPClient,
		Timeout:    30 * time.Second,
	}
}

// UpstreamError wraps a non-2xx response or a GraphQL error list.
type UpstreamError struct {
	Status int
	Errors json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("linear %d: %s", e.Status, strings.TrimSpace(string(e.Errors)))
}

// Messages returns the message fields of a GraphQL error list, if any.
func (e *UpstreamError) Messages() []string {
	var list []struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Errors, &list); err != nil {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item.Message != "" {
			out = append(out, item.Message)
		}
	}
	return out
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// Query posts a query or mutation and decodes the data member into out.
func (c *Client) Query(ctx context.Context, query string, vars map[string]any, out any) error {
	hc := c.HTTPClient
	if hc == nil {
		hc = sharedHTTPClient
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(request{Query: query, Variables: vars}); err != nil {
		return fmt.Errorf("encode graphql request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		// Personal API keys go in verbatim; OAuth tokens already carry "Bearer ".
		req.Header.Set("Authorization", c.APIKey)
	}
	start := time.Now()
	res, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("linear request: %w", err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, MaxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("read linear response: %w", err)
	}
	if len(raw) > MaxResponseBytes {
		return fmt.Errorf("linear response exceeds %d bytes", MaxResponseBytes)
	}
	c.logger().WithFields(logrus.Fields{
		"operation": OperationName(query),
		"status":    res.StatusCode,
		"elapsed":   time.Since(start).String(),
	}).Debug("linear query")

	var payload response
	if err := json.Unmarshal(raw, &payload); err != nil {
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return &UpstreamError{Status: res.StatusCode, Errors: truncateJSON(raw)}
		}
		return fmt.Errorf("decode linear response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 || hasErrors(payload.Errors) {
		detail := payload.Errors
		if !hasErrors(detail) {
			detail = truncateJSON(raw)
		}
		return &UpstreamError{Status: res.StatusCode, Errors: detail}
	}
	if out == nil || len(payload.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload.Data, out); err != nil {
		return fmt.Errorf("decode linear data: %w", err)
	}
	return nil
}

func (c *Client) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.StandardLogger()
}

func hasErrors(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null" && s != "[]"
}

func truncateJSON(raw []byte) json.RawMessage {
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	quoted, _ := json.Marshal(string(raw))
	return json.RawMessage(quoted)
}
