package normalization

import (
	"path/filepath"
	"strings"
)

const maxSafeFilenameBytes = 120

// SanitizeFilename reduces a client-supplied filename to a basename-only,
// filesystem- and blob-key-safe form: any character outside
// [A-Za-z0-9._-] becomes "_", and the result is capped at
// maxSafeFilenameBytes bytes.
func SanitizeFilename(input string) string {
	name := filepath.Base(strings.TrimSpace(input))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "upload"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	safe := b.String()
	if len(safe) > maxSafeFilenameBytes {
		safe = safe[:maxSafeFilenameBytes]
	}
	// Names like ".." or "..." are legal under the character rules but
	// are not usable blob-key segments.
	if strings.Trim(safe, ".") == "" {
		safe = "upload"
	}
	return safe
}
