package etag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/hkloudou/condmerge/internal/pointer"
	"github.com/hkloudou/condmerge/internal/record"
)

// Calculator derives an entity tag for the value of rec at ptr.
// ok is false when no tag applies (nil record, absent value).
type Calculator interface {
	Compute(ptr string, rec *record.Record) (tag string, ok bool)
}

// CalculatorFunc adapts a function to Calculator
type CalculatorFunc func(ptr string, rec *record.Record) (string, bool)

func (f CalculatorFunc) Compute(ptr string, rec *record.Record) (string, bool) {
	return f(ptr, rec)
}

// Default tags the whole record by revision and any sub-resource by a hash
// of its compact JSON value:
//
//	"/"           -> "rev:12"
//	"/attributes" -> "hash:9f86d081884c7d65"
type Default struct{}

func (Default) Compute(ptr string, rec *record.Record) (string, bool) {
	if rec == nil {
		return "", false
	}
	if pointer.IsRoot(ptr) {
		return "rev:" + strconv.FormatInt(rec.Revision, 10), true
	}
	v := pointer.Get(rec.JSON(), ptr)
	if !v.Exists() {
		return "", false
	}
	raw := []byte(v.Raw)
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		raw = buf.Bytes()
	}
	return fmt.Sprintf("hash:%016x", xxhash.Sum64(raw)), true
}

// Quote formats tag as an HTTP entity-tag header value
func Quote(tag string) string {
	return strconv.Quote(tag)
}
