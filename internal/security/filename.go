// Package security holds helpers for handling untrusted input.
package security

import "strings"

const maxFilenameLen = 128

// SanitizeFilename turns an arbitrary identifier (a model id from a user
// config, say) into a safe file name component. Runs of characters outside
// [A-Za-z0-9._-] become a single underscore; the result is trimmed of
// leading and trailing dots and underscores and capped in length. An empty
// result becomes "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
