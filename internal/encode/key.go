package encode

import (
	"encoding/base64"
	"strings"
)

// safePrefix marks an id stored verbatim. '(' never appears in the
// base64url alphabet, so the two forms cannot collide.
const safePrefix = "("

var rawURL = base64.URLEncoding.WithPadding(base64.NoPadding)

// EncodeID turns a record id into a segment usable in Redis keys and
// object storage paths. Safe ids keep their readable form.
func EncodeID(id string) string {
	if len(id) == 0 {
		return ""
	}
	if IsSafe(id) {
		return safePrefix + id
	}
	return rawURL.EncodeToString([]byte(id))
}

// DecodeID reverses EncodeID
func DecodeID(segment string) (string, error) {
	if len(segment) == 0 {
		return "", nil
	}
	if strings.HasPrefix(segment, safePrefix) {
		return segment[len(safePrefix):], nil
	}
	decoded, err := rawURL.DecodeString(segment)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// IsSafe reports whether id only contains a-z, A-Z, 0-9, '-', '_' and '.'.
// '/' and ':' are excluded since they separate path and key segments.
func IsSafe(id string) bool {
	if len(id) == 0 {
		return false
	}
	for _, r := range id {
		if !((r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.') {
			return false
		}
	}
	return true
}
