package webhook

import (
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"linearmcp/internal/config"
)

// SignatureHeader carries Linear's hex HMAC of the raw body.
const SignatureHeader = "linear-signature"

// Handler is the POST /webhooks/linear endpoint.
type Handler struct {
	Gate    *Gate
	Relay   *Relay
	MaxBody int64
	Logger  logrus.FieldLogger
}

// NewHandler wires a gate and an optional relay. relay may be nil.
func NewHandler(cfg config.WebhookConfig, gate *Gate, relay *Relay, logger logrus.FieldLogger) *Handler {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = config.DefaultMaxBodyBytes
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{Gate: gate, Relay: relay, MaxBody: maxBody, Logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.Logger.WithField("remote_addr", r.RemoteAddr)
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, h.MaxBody+1))
	if err != nil {
		log.WithError(err).Warn("webhook: read body failed")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if int64(len(body)) > h.MaxBody {
		log.WithField("limit", h.MaxBody).Warn("webhook: body too large")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}
	if err := h.Gate.Verify(body, r.Header.Get(SignatureHeader)); err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			log.WithError(err).Debug("webhook: rejected")
		}
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
	if h.Relay != nil {
		msg := NewMessage(body)
		log.WithField("delivery_id", msg.ID).Debug("webhook: accepted")
		h.Relay.Dispatch(msg)
	}
}
