// Package auth issues the console's CSRF double-submit token. The backend
// credential itself lives in the session store and never reaches a cookie.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// NewCSRFToken returns a random URL-safe token and a short fingerprint that
// is safe to log.
func NewCSRFToken() (raw string, fingerprint string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, Fingerprint(raw), nil
}

func Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:6])
}
