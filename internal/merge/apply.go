package merge

import (
	"time"

	"github.com/hkloudou/condmerge/internal/failure"
	"github.com/hkloudou/condmerge/internal/record"
)

// Applier merges a filtered payload into a record at a pointer and re-parses
// the result into a new record.
type Applier struct {
	merger Merger
}

// NewApplier creates an applier; a nil merger means RFC 7396.
func NewApplier(merger Merger) *Applier {
	if merger == nil {
		merger = NewRFC7396Merger()
	}
	return &Applier{merger: merger}
}

// Apply is pure: identical inputs yield byte-identical records. rec is not
// modified. Every failure is an InvalidPatchResult carrying headers.
func (a *Applier) Apply(rec *record.Record, ptr string, payload []byte, nextRevision int64, ts time.Time, headers map[string]string) (*record.Record, error) {
	if rec == nil {
		return nil, failure.Newf(failure.KindInvalidPatchResult, headers, "no record to merge into")
	}
	merged, err := a.merger.Merge(rec.JSON(), payload, ptr)
	if err != nil {
		return nil, failure.New(failure.KindInvalidPatchResult, err.Error(), headers, err)
	}
	next, err := record.FromJSON(rec.ID, merged, nextRevision, ts)
	if err != nil {
		return nil, failure.New(failure.KindInvalidPatchResult, err.Error(), headers, err)
	}
	return next, nil
}
