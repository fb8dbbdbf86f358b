package sizeguard

import (
	"github.com/hkloudou/condmerge/internal/failure"
)

// DefaultMaxBytes is the default limit for a serialized record (100 KiB)
const DefaultMaxBytes int64 = 100 * 1024

// Measurer reports the serialized size of a value in two ways:
// UpperBound is cheap and never below ExactSize; ExactSize may serialize.
type Measurer interface {
	UpperBound() int64
	ExactSize() int64
}

// Guard rejects values whose serialized size exceeds Limit.
// A Limit of zero or below disables the check.
type Guard struct {
	Limit int64
}

func New(limit int64) Guard {
	return Guard{Limit: limit}
}

// Check only calls ExactSize when UpperBound could exceed the limit.
func (g Guard) Check(m Measurer, headers map[string]string) error {
	if g.Limit <= 0 {
		return nil
	}
	if m.UpperBound() <= g.Limit {
		return nil
	}
	if size := m.ExactSize(); size > g.Limit {
		return failure.Newf(failure.KindSizeLimitExceeded, headers,
			"record size of %d bytes exceeds the limit of %d bytes", size, g.Limit)
	}
	return nil
}
