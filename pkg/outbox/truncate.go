package outbox

import "unicode/utf8"

// TruncateString cuts s to at most maxBytes without splitting a rune.
func TruncateString(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	b := []byte(s[:maxBytes])
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return string(b)
}

func truncateError(err error, maxBytes int) string {
	if err == nil {
		return ""
	}
	return TruncateString(err.Error(), maxBytes)
}
