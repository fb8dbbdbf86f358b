package merge

import (
	"bytes"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/hkloudou/condmerge/internal/pointer"
	"github.com/tidwall/gjson"
)

// RFC7396Merger implements RFC 7396 JSON Merge Patch
// https://datatracker.ietf.org/doc/html/rfc7396
type RFC7396Merger struct{}

// NewRFC7396Merger creates a new RFC 7396 merger
func NewRFC7396Merger() *RFC7396Merger {
	return &RFC7396Merger{}
}

// Merge applies patch at ptr. The patch is nested into objects along ptr and
// merged at the root, so missing or non-object intermediate values become
// objects and a null patch deletes the addressed member.
func (m *RFC7396Merger) Merge(original, patch []byte, ptr string) ([]byte, error) {
	ptr = pointer.Normalize(ptr)
	if err := pointer.Validate(ptr); err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(patch) {
		return nil, fmt.Errorf("RFC7396 merge failed: patch is not valid JSON")
	}
	wrapped, err := pointer.Wrap(ptr, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to scope patch to %q: %w", ptr, err)
	}
	// A non-object patch replaces the target wholesale
	if !gjson.ParseBytes(wrapped).IsObject() {
		return bytes.Clone(wrapped), nil
	}
	result, err := jsonpatch.MergePatch(original, wrapped)
	if err != nil {
		return nil, fmt.Errorf("RFC7396 merge failed: %w", err)
	}
	return result, nil
}
