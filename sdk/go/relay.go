package lmcpsdk

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Headers set by the relay on every forwarded delivery.
const (
	HeaderTimestamp = "x-mcp-timestamp"
	HeaderSignature = "x-mcp-signature"
	HeaderDelivery  = "x-mcp-delivery"
)

// ErrBadRelaySignature is returned when a forwarded delivery fails verification.
var ErrBadRelaySignature = errors.New("relay signature mismatch")

// VerifyRelay checks a delivery forwarded by the relay: the signature is
// HMAC-SHA256 over the raw body in lowercase hex, and the relay timestamp
// (epoch ms) must be within window of now. A zero window skips the age check.
func VerifyRelay(secret string, body []byte, header http.Header, now time.Time, window time.Duration) error {
	if secret == "" {
		return errors.New("relay secret not configured")
	}
	got := header.Get(HeaderSignature)
	if got == "" {
		return fmt.Errorf("%w: missing %s", ErrBadRelaySignature, HeaderSignature)
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(got), []byte(want)) {
		return ErrBadRelaySignature
	}
	if window <= 0 {
		return nil
	}
	ms, err := strconv.ParseInt(header.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad %s", ErrBadRelaySignature, HeaderTimestamp)
	}
	skew := now.Sub(time.UnixMilli(ms))
	if skew < 0 {
		skew = -skew
	}
	if skew > window {
		return fmt.Errorf("%w: delivery outside %s window", ErrBadRelaySignature, window)
	}
	return nil
}
