package pypindex

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsValidKey validates an object key for storage and download routes.
// Keys are relative, slash-separated, may not traverse upward and may not
// contain empty or "." segments, control characters or whitespace.
func IsValidKey(key string) bool {
	if key == "" || key == "/" || key == "." {
		return false
	}

	if key[0] == '/' || strings.HasSuffix(key, "/") {
		return false
	}

	if strings.Contains(key, "..") || strings.Contains(key, "//") {
		return false
	}

	if strings.ContainsAny(key, `\?#~`) {
		return false
	}

	if !utf8.ValidString(key) {
		return false
	}

	if strings.HasPrefix(key, "./") || strings.Contains(key, "/./") || strings.HasSuffix(key, "/.") {
		return false
	}

	for _, r := range key {
		if r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}
