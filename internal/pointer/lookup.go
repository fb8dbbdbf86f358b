package pointer

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Get returns the value addressed by ptr inside doc. Pointers address object
// members only: a segment below an array or scalar is absent, even if numeric.
func Get(doc []byte, ptr string) gjson.Result {
	res := gjson.ParseBytes(doc)
	for _, seg := range Segments(ptr) {
		if !res.IsObject() {
			return gjson.Result{}
		}
		res = res.Get(escapeKey(seg))
	}
	return res
}

// Exists reports whether doc has a value at ptr. An explicit null counts as present.
func Exists(doc []byte, ptr string) bool {
	return Get(doc, ptr).Exists()
}

// Delete returns a copy of doc without the value at ptr. doc is not modified.
// Deleting the root or an absent value returns an unchanged copy.
func Delete(doc []byte, ptr string) ([]byte, error) {
	out := make([]byte, len(doc))
	copy(out, doc)
	if IsRoot(ptr) || !Exists(doc, ptr) {
		return out, nil
	}
	return sjson.DeleteBytes(out, ToSjsonPath(ptr))
}

// Wrap nests raw under ptr: Wrap("/a/b", `1`) -> {"a":{"b":1}}.
// The root pointer returns raw itself.
func Wrap(ptr string, raw []byte) ([]byte, error) {
	if IsRoot(ptr) {
		return raw, nil
	}
	return sjson.SetRawBytes([]byte("{}"), ToSjsonPath(ptr), raw)
}
