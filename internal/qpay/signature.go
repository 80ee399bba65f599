package qpay

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Sign returns the lowercase hex SHA-256 of secret followed by every field,
// concatenated without delimiters. Field order is part of the wire protocol.
func Sign(secret string, fields ...string) string {
	h := sha256.New()
	h.Write([]byte(secret))
	for _, f := range fields {
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Verify recomputes the hash over fields and compares it with candidate in
// constant time. Hex case in candidate is ignored.
func Verify(secret, candidate string, fields ...string) bool {
	if candidate == "" {
		return false
	}
	expected := Sign(secret, fields...)
	got := strings.ToLower(strings.TrimSpace(candidate))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
