// Package signature computes and checks HMAC-SHA256 webhook signatures.
//
// A signature is the lowercase hex encoding of HMAC-SHA256(secret, message).
// What goes into message is the caller's business; this package never
// looks inside it.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// HexLength is the length of a hex-encoded HMAC-SHA256 digest.
const HexLength = sha256.Size * 2

// Sign returns the lowercase hex HMAC-SHA256 of message keyed by secret.
func Sign(secret, message []byte) (string, error) {
	mac := hmac.New(sha256.New, secret)
	if _, err := mac.Write(message); err != nil {
		return "", fmt.Errorf("writing signed message: %w", err)
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Equal reports whether computed and provided are the same signature.
// Lengths are not secret, so a length mismatch returns early; equal-length
// inputs are compared in constant time.
func Equal(computed, provided string) bool {
	if len(computed) != len(provided) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(provided)) == 1
}

// Verify reports whether providedHex is the signature of message under secret.
func Verify(secret, message []byte, providedHex string) bool {
	computed, err := Sign(secret, message)
	if err != nil {
		return false
	}
	return Equal(computed, providedHex)
}

// SignedMessage builds the bytes covered by a timestamp-bound signature:
// timestamp, an ASCII period, then the raw body, byte for byte.
func SignedMessage(timestamp string, body []byte) []byte {
	msg := make([]byte, 0, len(timestamp)+1+len(body))
	msg = append(msg, timestamp...)
	msg = append(msg, '.')
	return append(msg, body...)
}
