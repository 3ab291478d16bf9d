package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash generates a SHA-256 hash of the input string
func Hash(input string) string {
	hasher := sha256.New()
	hasher.Write([]byte(input))
	return hex.EncodeToString(hasher.Sum(nil))
}

// HashKey hashes parts joined by the ASCII unit separator, so ("a", "bc")
// and ("ab", "c") produce different keys.
func HashKey(parts ...string) string {
	return Hash(strings.Join(parts, "\x1f"))
}
