package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linearmcp/internal/config"
)

type delivery struct {
	URL    string
	Header http.Header
	Body   []byte
}

// recordingDoer captures requests and answers with status or err.
type recordingDoer struct {
	mu         sync.Mutex
	deliveries []delivery
	status     int
	err        error
	release    chan struct{}
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	if d.release != nil {
		<-d.release
	}
	body, _ := io.ReadAll(req.Body)
	d.mu.Lock()
	d.deliveries = append(d.deliveries, delivery{URL: req.URL.String(), Header: req.Header.Clone(), Body: body})
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	status := d.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader("downstream says no"))}, nil
}

func (d *recordingDoer) all() []delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]delivery(nil), d.deliveries...)
}

func quietLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

func TestNewRelayWithoutURLIsNil(t *testing.T) {
	r := NewRelay(config.WebhookConfig{ForwardSecret: "x"}, nil, nil)
	assert.Nil(t, r)
	r.Dispatch(NewMessage([]byte("{}")))
	assert.NoError(t, r.Wait(context.Background()))
}

func TestRelayForwardsRawBytesWithHeaders(t *testing.T) {
	doer := &recordingDoer{}
	logger, _ := quietLogger()
	r := NewRelay(config.WebhookConfig{
		ForwardURL:    "https://downstream.example/hook",
		ForwardSecret: "fwd",
		UserAgent:     "linearmcp-relay",
	}, doer, logger)
	r.now = func() time.Time { return time.UnixMilli(1_700_000_000_123) }

	raw := []byte(`{ "webhookTimestamp": 1, "spacing" :  "kept" }`)
	msg := NewMessage(raw)
	r.Dispatch(msg)
	require.NoError(t, r.Wait(context.Background()))

	got := doer.all()
	require.Len(t, got, 1)
	d := got[0]
	assert.Equal(t, "https://downstream.example/hook", d.URL)
	assert.Equal(t, raw, d.Body)
	assert.Equal(t, "application/json", d.Header.Get("content-type"))
	assert.Equal(t, "1700000000123", d.Header.Get(HeaderTimestamp))
	assert.Equal(t, Sign("fwd", raw), d.Header.Get(HeaderSignature))
	assert.Equal(t, msg.ID, d.Header.Get(HeaderDelivery))
	assert.Equal(t, "linearmcp-relay", d.Header.Get("User-Agent"))
	_, err := uuid.Parse(msg.ID)
	assert.NoError(t, err)
}

func TestRelayOmitsSignatureWithoutSecret(t *testing.T) {
	doer := &recordingDoer{}
	r := NewRelay(config.WebhookConfig{ForwardURL: "https://downstream.example/hook"}, doer, nil)

	r.Dispatch(NewMessage([]byte(`{}`)))
	require.NoError(t, r.Wait(context.Background()))

	got := doer.all()
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Header.Get(HeaderSignature))
	assert.NotEmpty(t, got[0].Header.Get(HeaderTimestamp))
}

func TestRelayFailuresAreOnlyLogged(t *testing.T) {
	cases := map[string]*recordingDoer{
		"transport": {err: errors.New("connection refused")},
		"status":    {status: http.StatusBadGateway},
	}
	for name, doer := range cases {
		t.Run(name, func(t *testing.T) {
			logger, hook := quietLogger()
			r := NewRelay(config.WebhookConfig{ForwardURL: "https://downstream.example/hook"}, doer, logger)
			r.Dispatch(NewMessage([]byte(`{}`)))
			require.NoError(t, r.Wait(context.Background()))

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, logrus.WarnLevel, entry.Level)
			assert.Contains(t, entry.Data, "delivery_id")
		})
	}
}

func TestRelayWaitHonoursContext(t *testing.T) {
	doer := &recordingDoer{release: make(chan struct{})}
	r := NewRelay(config.WebhookConfig{ForwardURL: "https://downstream.example/hook"}, doer, nil)
	r.Dispatch(NewMessage([]byte(`{}`)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)

	close(doer.release)
	require.NoError(t, r.Wait(context.Background()))
	assert.Len(t, doer.all(), 1)
}

func TestNewMessageCopiesBody(t *testing.T) {
	body := []byte(`{"a":1}`)
	msg := NewMessage(body)
	body[0] = 'X'
	assert.Equal(t, `{"a":1}`, string(msg.Body))
}
