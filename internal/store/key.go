package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Key derives the content address of an artifact from the parameters that
// affect its pixels: canonical JSON, SHA-256, lowercase hex.
func Key(params map[string]any) (string, error) {
	b, err := MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// ValidDigest reports whether s looks like a digest produced by Key.
func ValidDigest(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
