package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
)

// SignedMessage carries the verification inputs of an inbound trigger:
// the provider-assigned message id, the signed timestamp header, the raw
// request body, and the signature header value.
type SignedMessage struct {
	MessageID string
	Timestamp string
	Body      []byte
	Signature string
}

// ComputeSignature returns the hex HMAC-SHA256 of messageID+timestamp+body
// under the given secret. This is the canonical trigger signature scheme.
func ComputeSignature(secret string, messageID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(messageID))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks msg against every candidate secret using a
// constant-time comparison, and enforces the freshness window on the
// signed timestamp to defeat replay. Both checks must pass; failures are
// VerificationErrors and must never lead to dispatch.
func VerifySignature(msg SignedMessage, secrets []string, freshness time.Duration, now time.Time) error {
	if msg.MessageID == "" || msg.Timestamp == "" || msg.Signature == "" {
		return domainerrors.NewVerification("missing message id, timestamp, or signature")
	}

	ts, err := parseTimestamp(msg.Timestamp)
	if err != nil {
		return domainerrors.NewVerification("unparseable timestamp %q", msg.Timestamp)
	}
	if diff := now.Sub(ts); diff > freshness || diff < -freshness {
		return domainerrors.NewVerification("timestamp outside freshness window")
	}

	// Some providers prefix the hex digest with a scheme tag.
	supplied := strings.TrimPrefix(msg.Signature, "sha256=")

	for _, secret := range secrets {
		expected := ComputeSignature(secret, msg.MessageID, msg.Timestamp, msg.Body)
		if hmac.Equal([]byte(expected), []byte(supplied)) {
			return nil
		}
	}
	return domainerrors.NewVerification("signature does not match any known secret")
}

// parseTimestamp accepts RFC3339 or unix seconds, the two formats the
// supported providers send.
func parseTimestamp(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	secs, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0), nil
}
