package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"linearmcp/internal/config"
)

// Relay headers set on every forwarded delivery.
const (
	HeaderTimestamp = "x-mcp-timestamp"
	HeaderSignature = "x-mcp-signature"
	HeaderDelivery  = "x-mcp-delivery"
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Message is an accepted delivery waiting to be forwarded.
type Message struct {
	ID   string
	Body []byte
}

// NewMessage copies body into a message with a fresh delivery id.
func NewMessage(body []byte) Message {
	return Message{ID: uuid.NewString(), Body: append([]byte(nil), body...)}
}

// Relay forwards accepted deliveries in the background. Failures are logged
// and never reach the original sender.
type Relay struct {
	url    string
	secret string
	agent  string
	client Doer
	logger logrus.FieldLogger
	now    func() time.Time

	wg sync.WaitGroup
}

// NewRelay returns nil when no forward URL is configured; a nil relay
// accepts Dispatch and Wait as no-ops.
func NewRelay(cfg config.WebhookConfig, client Doer, logger logrus.FieldLogger) *Relay {
	if strings.TrimSpace(cfg.ForwardURL) == "" {
		return nil
	}
	if client == nil {
		timeout := cfg.ForwardTimeout
		if timeout <= 0 {
			timeout = config.DefaultForwardTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Relay{
		url:    cfg.ForwardURL,
		secret: cfg.ForwardSecret,
		agent:  cfg.UserAgent,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Dispatch starts forwarding msg and returns immediately.
func (r *Relay) Dispatch(msg Message) {
	if r == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		log := r.logger.WithField("delivery_id", msg.ID)
		if err := r.Forward(context.Background(), msg); err != nil {
			log.WithError(err).Warn("webhook: forward failed")
			return
		}
		log.Debug("webhook: forwarded")
	}()
}

// Forward posts msg synchronously.
func (r *Relay) Forward(ctx context.Context, msg Message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(msg.Body))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(r.now().UnixMilli(), 10))
	if msg.ID != "" {
		req.Header.Set(HeaderDelivery, msg.ID)
	}
	if r.secret != "" {
		req.Header.Set(HeaderSignature, Sign(r.secret, msg.Body))
	}
	if r.agent != "" {
		req.Header.Set("User-Agent", r.agent)
	}
	res, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}

// Wait blocks until pending deliveries finish or ctx is done.
func (r *Relay) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
