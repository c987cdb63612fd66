package memory

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns the 64-bit content hash used for exact-duplicate and
// cross-session identity matching. Stable under case and whitespace
// normalization: "Use  Vitest" and "use vitest" share a fingerprint.
func Fingerprint(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(normalize(content)))
}

// ShortHash returns the 8-char hash prefix recorded in message pointers.
func ShortHash(content string) string {
	return Fingerprint(content)[:8]
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// EstimateTokens estimates the token cost of a string.
// Rough estimate: 1 token ≈ 4 characters.
func EstimateTokens(s string) int {
	return len(s) / 4
}
