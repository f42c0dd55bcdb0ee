package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Headers set on every delivery. SignatureHeader is only set when a secret
// is configured.
const (
	SignatureHeader = "X-PDP-Signature"
	EventTypeHeader = "X-PDP-Event"
	DeliveryHeader  = "X-PDP-Delivery"
)

const signaturePrefix = "sha256="

// Sign returns "sha256=" followed by the lowercase hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign. Receivers use it to
// authenticate deliveries.
func Verify(secret string, body []byte, provided string) bool {
	raw, ok := strings.CutPrefix(provided, signaturePrefix)
	if !ok {
		return false
	}
	got, err := hex.DecodeString(raw)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}
