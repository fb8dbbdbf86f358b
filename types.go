package condmerge

import (
	"bytes"
	"encoding/json"
	"maps"
	"time"

	"github.com/hkloudou/condmerge/internal/pointer"
)

// Headers are caller supplied request headers. They are carried into events,
// responses and errors unchanged.
type Headers map[string]string

// Clone returns a non-nil copy of h
func (h Headers) Clone() Headers {
	out := make(Headers, len(h)+1)
	maps.Copy(out, h)
	return out
}

// Header names set by this package
const (
	HeaderETag          = "etag"
	HeaderCorrelationID = "correlation-id"
)

// Request asks for Value to be merged into the record at Path.
// NextRevision and Timestamp are assigned by the caller.
type Request struct {
	TargetID     string          `json:"targetId"`
	Path         string          `json:"path"`
	Value        json.RawMessage `json:"value"`
	Conditions   []Condition     `json:"conditions,omitempty"`
	Headers      Headers         `json:"headers,omitempty"`
	NextRevision int64           `json:"nextRevision"`
	Timestamp    time.Time       `json:"timestamp"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// path is the target pointer: "" is the root and a missing leading slash is added
func (r *Request) path() string {
	if pointer.IsRoot(r.Path) {
		return "/"
	}
	return pointer.Normalize(r.Path)
}

// EventTypeMerged is the type of every event built by Merger
const EventTypeMerged = "merged"

// ChangeEvent is the durable fact of one merge. Value is the filtered payload,
// never the merged record.
type ChangeEvent struct {
	Type      string          `json:"type"`
	TargetID  string          `json:"targetId"`
	Path      string          `json:"path"`
	Value     json.RawMessage `json:"value"`
	Revision  int64           `json:"revision"`
	Timestamp time.Time       `json:"timestamp"`
	Headers   Headers         `json:"headers,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Response is returned to the caller of a merge
type Response struct {
	TargetID     string  `json:"targetId"`
	Path         string  `json:"path"`
	ETag         string  `json:"etag,omitempty"`
	PreviousETag string  `json:"previousEtag,omitempty"`
	Headers      Headers `json:"headers,omitempty"`
}

// Result of a successful merge. Record is the new record state for the
// persistence layer; it is not part of the event.
type Result struct {
	Event    *ChangeEvent `json:"event"`
	Response *Response    `json:"response"`
	Record   *Record      `json:"-"`
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return bytes.Clone(raw)
}
