// Package fingerprint derives a stable identity for ticket text, so the same
// ticket submitted twice can be matched to its earlier runs.
package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxNormalizedBytes bounds how much of a ticket contributes to its identity.
const maxNormalizedBytes = 8000

// Normalization regexes compiled once at package init.
var (
	reDatetime   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:\d{2})?`)
	reEmail      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9-]+(\.[A-Za-z0-9-]+)+`)
	reUUID       = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	reHexAddr    = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	reNumber     = regexp.MustCompile(`\b\d+\b`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Of returns the lowercase hex SHA-256 of the normalized ticket text.
func Of(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return fmt.Sprintf("%x", sum)
}

// Normalize masks the details that change between otherwise identical
// tickets (timestamps, addresses, ids, counts) and folds case and spacing.
func Normalize(text string) string {
	text = reDatetime.ReplaceAllString(text, "DATETIME")
	text = reEmail.ReplaceAllString(text, "EMAIL")
	text = reUUID.ReplaceAllString(text, "UUID")
	text = reHexAddr.ReplaceAllString(text, "0xADDR")
	text = reNumber.ReplaceAllString(text, "N")
	text = reWhitespace.ReplaceAllString(text, " ")
	text = strings.ToLower(strings.TrimSpace(text))
	return truncate(text, maxNormalizedBytes)
}

// truncate cuts s to maxBytes without splitting UTF-8 runes.
func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
