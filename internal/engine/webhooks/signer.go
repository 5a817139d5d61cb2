package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignaturePrefix tags the algorithm in the X-Webhook-Signature header.
const SignaturePrefix = "sha256="

// Sign computes the signature header value for a payload: an HMAC-SHA-256
// over the exact bytes that go on the wire, hex-encoded and prefixed with
// the algorithm tag. Receivers verify by recomputing over the request body.
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return SignaturePrefix + hex.EncodeToString(h.Sum(nil))
}

// Verify checks a signature header value against the payload. Comparison is
// constant-time.
func Verify(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(signature))
}
