package condmerge

import (
	"github.com/hkloudou/condmerge/internal/etag"
)

// build assembles the event and response for a validated merge.
// The event carries the filtered payload so consumers see exactly what changed.
func (m *Merger) build(previous, next *Record, filtered []byte, req *Request) *Result {
	path := req.path()

	event := &ChangeEvent{
		Type:      EventTypeMerged,
		TargetID:  next.ID,
		Path:      path,
		Value:     cloneRaw(filtered),
		Revision:  req.NextRevision,
		Timestamp: req.Timestamp,
		Metadata:  cloneRaw(req.Metadata),
	}
	if len(req.Headers) > 0 {
		event.Headers = req.Headers.Clone()
	}

	resp := &Response{
		TargetID: next.ID,
		Path:     path,
		Headers:  req.Headers.Clone(),
	}
	if tag, ok := m.etags.Compute(path, next); ok {
		resp.ETag = tag
		resp.Headers[HeaderETag] = etag.Quote(tag)
	}
	if tag, ok := m.etags.Compute(path, previous); ok {
		resp.PreviousETag = tag
	}

	return &Result{Event: event, Response: resp, Record: next}
}
