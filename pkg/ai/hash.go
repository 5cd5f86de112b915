package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var hashWSRe = regexp.MustCompile(`\s+`)

func normalizeForHash(s string) string {
	return hashWSRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// ContentHash computes the cache key for an email: sha-256 over the
// normalized subject, sender and body. Normalization (lowercase, collapsed
// whitespace) makes the key stable across trivial formatting differences such
// as a re-delivered message with different line wrapping.
func ContentHash(subject, sender, body string) string {
	h := sha256.New()
	h.Write([]byte(normalizeForHash(subject)))
	h.Write([]byte{'\n'})
	h.Write([]byte(normalizeForHash(sender)))
	h.Write([]byte{'\n'})
	h.Write([]byte(normalizeForHash(body)))
	return hex.EncodeToString(h.Sum(nil))
}
