package condmerge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrRevisionConflict is returned when the record changed between load and save
var ErrRevisionConflict = errors.New("condmerge: revision conflict")

// RecordStore holds the current state of every record.
// Load returns an error wrapping ErrNoRecord for unknown ids. Save must only
// succeed while the stored revision equals expected (0: record is new) and
// otherwise return an error wrapping ErrRevisionConflict.
type RecordStore interface {
	Load(ctx context.Context, id string) (*Record, error)
	Save(ctx context.Context, rec *Record, expected int64) error
}

// EventSink receives every change event after its record is saved
type EventSink interface {
	Append(ctx context.Context, event *ChangeEvent) error
}

// ServiceOption configures a Service
type ServiceOption struct {
	Clock  func() time.Time
	Logger *slog.Logger
}

// WithClock sets the clock stamping new revisions
func WithClock(now func() time.Time) func(*ServiceOption) {
	return func(opt *ServiceOption) {
		opt.Clock = now
	}
}

// WithServiceLogger sets the structured logger of a Service
func WithServiceLogger(logger *slog.Logger) func(*ServiceOption) {
	return func(opt *ServiceOption) {
		opt.Logger = logger
	}
}

// Service drives merges against stored records: it loads the record,
// assigns the next revision and timestamp, runs the Merger, saves the new
// state with a revision check and hands the event to the sink.
type Service struct {
	merger *Merger
	store  RecordStore
	sink   EventSink
	now    func() time.Time
	log    *slog.Logger
}

// NewService creates a Service. sink may be nil.
func NewService(merger *Merger, store RecordStore, sink EventSink, opts ...func(*ServiceOption)) *Service {
	option := &ServiceOption{}
	for _, opt := range opts {
		opt(option)
	}
	if option.Clock == nil {
		option.Clock = time.Now
	}
	if option.Logger == nil {
		option.Logger = discardLogger()
	}
	return &Service{
		merger: merger,
		store:  store,
		sink:   sink,
		now:    option.Clock,
		log:    option.Logger,
	}
}

// Create stores a new record at revision 1
func (s *Service) Create(ctx context.Context, id string, body []byte) (*Record, error) {
	rec, err := NewRecord(id, 1, s.now(), body)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, rec, 0); err != nil {
		return nil, err
	}
	s.log.Info("record created", "id", id)
	return rec, nil
}

// Merge applies req to the stored record req.TargetID. NextRevision and
// Timestamp of req are ignored and assigned here; a correlation id header
// is added when the caller did not send one.
func (s *Service) Merge(ctx context.Context, req *Request) (*Result, error) {
	rec, err := s.store.Load(ctx, req.TargetID)
	if err != nil {
		return nil, err
	}

	r := *req
	r.NextRevision = rec.Revision + 1
	r.Timestamp = s.now().UTC()
	r.Headers = req.Headers.Clone()
	if r.Headers[HeaderCorrelationID] == "" {
		r.Headers[HeaderCorrelationID] = uuid.NewString()
	}
	log := s.log.With("id", rec.ID, "revision", r.NextRevision, HeaderCorrelationID, r.Headers[HeaderCorrelationID])

	res, err := s.merger.Apply(ctx, rec, &r)
	if err != nil {
		log.Warn("merge rejected", "error", err)
		return nil, err
	}

	if err := s.store.Save(ctx, res.Record, rec.Revision); err != nil {
		log.Warn("save failed", "error", err)
		return nil, err
	}

	if s.sink != nil {
		if err := s.sink.Append(ctx, res.Event); err != nil {
			// the record is saved; the caller must know the event is missing
			log.Error("event append failed", "error", err)
			return res, fmt.Errorf("record saved but event not recorded: %w", err)
		}
	}
	log.Info("record merged", "path", res.Event.Path, "etag", res.Response.ETag)
	return res, nil
}
