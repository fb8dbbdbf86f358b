package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hkloudou/condmerge/internal/pointer"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Reserved fields of the full representation
const (
	FieldID       = "id"
	FieldRevision = "_revision"
	FieldModified = "_modified"
)

// yearSlack covers years beyond four digits: time.Time reaches 12 digits
// plus a sign.
const yearSlack = 9

// stampOverhead bounds what JSON() adds to Body:
// ,"_revision":<int64> and ,"_modified":"<RFC3339Nano>"
const stampOverhead = len(`,"`+FieldRevision+`":`) + 20 + len(`,"`+FieldModified+`":""`) + len(time.RFC3339Nano) + yearSlack

var ErrNotObject = errors.New("record must be a JSON object")

// Record is an immutable versioned JSON document.
// Body is compact JSON, always holds "id" and never the reserved stamp fields.
type Record struct {
	ID       string
	Revision int64
	Modified time.Time
	Body     []byte
}

// New builds a record from a JSON object body, setting its "id" field and
// dropping any stamp fields the body carries.
func New(id string, revision int64, modified time.Time, body []byte) (*Record, error) {
	if id == "" {
		return nil, fmt.Errorf("record id must not be empty")
	}
	clean, err := normalize(body)
	if err != nil {
		return nil, err
	}
	clean, err = sjson.SetBytes(clean, FieldID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to set record id: %w", err)
	}
	return &Record{ID: id, Revision: revision, Modified: modified.UTC(), Body: clean}, nil
}

// FromJSON re-parses a full representation produced by a merge. The document
// must still carry the unchanged id; revision and modified are restamped.
func FromJSON(id string, doc []byte, revision int64, modified time.Time) (*Record, error) {
	clean, err := normalize(doc)
	if err != nil {
		return nil, err
	}
	idField := gjson.GetBytes(clean, FieldID)
	switch {
	case !idField.Exists():
		return nil, fmt.Errorf("record field %q must not be removed", FieldID)
	case idField.Type != gjson.String:
		return nil, fmt.Errorf("record field %q must be a string, got %s", FieldID, idField.Type)
	case idField.Str != id:
		return nil, fmt.Errorf("record field %q cannot be changed from %q to %q", FieldID, id, idField.Str)
	}
	return &Record{ID: id, Revision: revision, Modified: modified.UTC(), Body: clean}, nil
}

// Parse reads a full representation including its stamps.
func Parse(doc []byte) (*Record, error) {
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("record is not valid JSON")
	}
	res := gjson.ParseBytes(doc)
	if !res.IsObject() {
		return nil, ErrNotObject
	}
	id := res.Get(FieldID)
	if id.Type != gjson.String || id.Str == "" {
		return nil, fmt.Errorf("record field %q must be a non-empty string", FieldID)
	}
	var modified time.Time
	if m := res.Get(FieldModified); m.Exists() {
		t, err := time.Parse(time.RFC3339Nano, m.String())
		if err != nil {
			return nil, fmt.Errorf("record field %q: %w", FieldModified, err)
		}
		modified = t
	}
	return FromJSON(id.Str, doc, res.Get(FieldRevision).Int(), modified)
}

func normalize(doc []byte) ([]byte, error) {
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("record is not valid JSON")
	}
	if !gjson.ParseBytes(doc).IsObject() {
		return nil, ErrNotObject
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to compact record: %w", err)
	}
	out := buf.Bytes()
	var err error
	for _, f := range []string{FieldRevision, FieldModified} {
		if out, err = sjson.DeleteBytes(out, f); err != nil {
			return nil, fmt.Errorf("failed to strip %q: %w", f, err)
		}
	}
	return out, nil
}

// JSON returns the full representation: Body plus revision and modified stamps.
func (r *Record) JSON() []byte {
	out := bytes.Clone(r.Body)
	out, _ = sjson.SetRawBytes(out, FieldRevision, strconv.AppendInt(nil, r.Revision, 10))
	out, _ = sjson.SetBytes(out, FieldModified, r.Modified.UTC().Format(time.RFC3339Nano))
	return out
}

// Value returns the value at ptr in the full representation.
func (r *Record) Value(ptr string) gjson.Result {
	if r == nil {
		return gjson.Result{}
	}
	return pointer.Get(r.JSON(), ptr)
}

// UpperBound is a cheap bound on len(JSON()) computed without serializing.
func (r *Record) UpperBound() int64 {
	return int64(len(r.Body) + stampOverhead)
}

// ExactSize serializes the record and returns the length of the result.
func (r *Record) ExactSize() int64 {
	return int64(len(r.JSON()))
}

func (r *Record) String() string {
	return string(r.JSON())
}

// LogValue defers serialization until a log record is actually emitted.
func (r *Record) LogValue() slog.Value {
	return slog.StringValue(string(r.JSON()))
}
