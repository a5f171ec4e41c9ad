package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Anonymous is the identity fingerprint for callers without a bearer token.
const Anonymous = "anonymous"

// Fingerprint derives a cache identity from a bearer token so one caller's
// cached data is never served to a differently-authenticated caller.
// The token itself is never stored.
func Fingerprint(token string) string {
	if token == "" {
		return Anonymous
	}
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:16])
}
