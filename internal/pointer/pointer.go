package pointer

import (
	"fmt"
	"regexp"
	"strings"
)

// pointerRegex validates a JSON pointer:
//   - Empty or "/" addresses the document root
//   - Otherwise starts with /, does not end with /, has no empty segments
//   - Segments carry no control characters
var pointerRegex = regexp.MustCompile(`^(/|(/[^/\x00-\x1f]+)+)?$`)

// Normalize adds the leading slash to a relative pointer: "c" -> "/c",
// "attributes/foo" -> "/attributes/foo". "" and absolute pointers are kept.
func Normalize(ptr string) string {
	if ptr == "" || strings.HasPrefix(ptr, "/") {
		return ptr
	}
	return "/" + ptr
}

// Validate checks ptr after Normalize
func Validate(ptr string) error {
	if !pointerRegex.MatchString(ptr) {
		return fmt.Errorf("invalid JSON pointer %q: must start with /, must not end with /, and segments must not be empty", ptr)
	}
	return nil
}

// IsRoot reports whether ptr addresses the whole document.
func IsRoot(ptr string) bool {
	return ptr == "" || ptr == "/"
}

// Segments splits a pointer into unescaped reference tokens (~1 -> /, ~0 -> ~).
// "/" and "" yield no segments.
func Segments(ptr string) []string {
	if IsRoot(ptr) {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(ptr, "/"), "/")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(strings.ReplaceAll(p, "~1", "/"), "~0", "~")
	}
	return parts
}

// Join appends a relative pointer to a base pointer.
// Examples:
//   - Join("/", "/a") -> "/a"
//   - Join("/attributes", "/a/b") -> "/attributes/a/b"
//   - Join("/attributes", "/") -> "/attributes"
func Join(base, rel string) string {
	if IsRoot(base) {
		if IsRoot(rel) {
			return "/"
		}
		return rel
	}
	if IsRoot(rel) {
		return base
	}
	return base + rel
}

// ToGjsonPath converts a JSON pointer to gjson path format
// It splits the pointer by "/" and escapes each segment for gjson usage
// Examples:
//   - "/" -> ""
//   - "/user" -> "user"
//   - "/user/profile" -> "user.profile"
//   - "/user.info" -> "user\.info" (dots in field names are escaped)
func ToGjsonPath(ptr string) string {
	segments := Segments(ptr)
	for i, seg := range segments {
		segments[i] = escapeKey(seg)
	}
	return strings.Join(segments, ".")
}

// ToSjsonPath is ToGjsonPath for writes. Purely numeric segments get sjson's
// ":" prefix so a missing parent is created as an object, not an array.
func ToSjsonPath(ptr string) string {
	segments := Segments(ptr)
	for i, seg := range segments {
		if isNumeric(seg) {
			segments[i] = ":" + seg
			continue
		}
		segments[i] = escapeKey(seg)
	}
	return strings.Join(segments, ".")
}

// escapeKey escapes special characters in a gjson key
// Based on gjson's internal escapeComp and isSafePathKeyChar functions
func escapeKey(key string) string {
	for i := 0; i < len(key); i++ {
		if !isSafeChar(key[i]) {
			escaped := make([]byte, 0, len(key)+8)
			escaped = append(escaped, key[:i]...)
			for ; i < len(key); i++ {
				if !isSafeChar(key[i]) {
					escaped = append(escaped, '\\')
				}
				escaped = append(escaped, key[i])
			}
			return string(escaped)
		}
	}
	return key
}

// isSafeChar returns true if the character is safe for gjson paths
// Safe characters: a-z, A-Z, 0-9, _, $, -, :
func isSafeChar(c byte) bool {
	return c == '_' || c == '$' || c == '-' || c == ':' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c >= 0x80
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
