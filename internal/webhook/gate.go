// Package webhook authenticates Linear webhook deliveries and relays the
// accepted ones to a downstream URL.
package webhook

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"linearmcp/internal/config"
)

// ErrUnauthenticated is wrapped by every Verify failure. The wrapped reason
// is for logs only; callers answer with a bare 401.
var ErrUnauthenticated = errors.New("unauthenticated")

// Gate verifies signature and freshness of inbound deliveries.
type Gate struct {
	secret []byte
	window time.Duration

	// Now is the clock used for the replay window.
	Now func() time.Time
}

// NewGate builds a gate from the webhook section of the config. An empty
// secret yields a gate that rejects everything.
func NewGate(cfg config.WebhookConfig) *Gate {
	window := cfg.ReplayWindow
	if window <= 0 {
		window = config.DefaultReplayWindow
	}
	return &Gate{secret: []byte(cfg.Secret), window: window, Now: time.Now}
}

// Configured reports whether an inbound secret is set.
func (g *Gate) Configured() bool {
	return len(g.secret) > 0
}

func unauthenticated(reason string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthenticated, fmt.Sprintf(reason, args...))
}

// Verify checks body against the linear-signature value and the embedded
// webhookTimestamp. Steps run in a fixed order and stop at the first failure.
func (g *Gate) Verify(body []byte, signature string) error {
	if !g.Configured() {
		return unauthenticated("no webhook secret configured")
	}
	if signature == "" {
		return unauthenticated("missing linear-signature header")
	}
	expected := Sign(string(g.secret), body)
	if len(signature) != len(expected) {
		return unauthenticated("signature length %d, want %d", len(signature), len(expected))
	}
	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 {
		return unauthenticated("signature mismatch")
	}
	ts, err := webhookTimestamp(body)
	if err != nil {
		return unauthenticated("%v", err)
	}
	skew := g.Now().UnixMilli() - ts
	if skew < 0 {
		skew = -skew
	}
	if skew > g.window.Milliseconds() {
		return unauthenticated("timestamp outside window by %dms", skew-g.window.Milliseconds())
	}
	return nil
}

// webhookTimestamp reads webhookTimestamp (epoch ms) from the payload. A
// missing, zero or non-numeric value is an error.
func webhookTimestamp(body []byte) (int64, error) {
	var payload struct {
		WebhookTimestamp json.RawMessage `json:"webhookTimestamp"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	raw := bytes.TrimSpace(payload.WebhookTimestamp)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, errors.New("webhookTimestamp missing")
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return 0, fmt.Errorf("webhookTimestamp not numeric: %s", raw)
	}
	if ms == 0 {
		return 0, errors.New("webhookTimestamp is zero")
	}
	return int64(ms), nil
}
