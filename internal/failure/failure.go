package failure

import (
	"errors"
	"fmt"
	"maps"
)

// Kind identifies which pipeline check rejected an update
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidExpression
	KindInvalidPatchResult
	KindSizeLimitExceeded
	KindSchemaValidationFailed
)

var (
	ErrInvalidExpression      = errors.New("invalid patch condition expression")
	ErrInvalidPatchResult     = errors.New("merge produced an invalid record")
	ErrSizeLimitExceeded      = errors.New("record size limit exceeded")
	ErrSchemaValidationFailed = errors.New("schema validation failed")
)

func (k Kind) String() string {
	switch k {
	case KindInvalidExpression:
		return "InvalidExpression"
	case KindInvalidPatchResult:
		return "InvalidPatchResult"
	case KindSizeLimitExceeded:
		return "SizeLimitExceeded"
	case KindSchemaValidationFailed:
		return "SchemaValidationFailed"
	default:
		return "Unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidExpression:
		return ErrInvalidExpression
	case KindInvalidPatchResult:
		return ErrInvalidPatchResult
	case KindSizeLimitExceeded:
		return ErrSizeLimitExceeded
	case KindSchemaValidationFailed:
		return ErrSchemaValidationFailed
	default:
		return nil
	}
}

// Error is a terminal pipeline failure. It carries the request headers so the
// boundary layer can correlate the response.
type Error struct {
	Kind    Kind
	Message string
	Headers map[string]string
	Err     error
}

// New creates an Error of kind k. The headers map is copied.
func New(k Kind, message string, headers map[string]string, cause error) *Error {
	return &Error{
		Kind:    k,
		Message: message,
		Headers: maps.Clone(headers),
		Err:     cause,
	}
}

// Newf is New with a formatted message and no cause
func Newf(k Kind, headers map[string]string, format string, args ...any) *Error {
	return New(k, fmt.Sprintf(format, args...), headers, nil)
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

// Unwrap exposes both the kind sentinel and the upstream cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind of err, or KindUnknown if err is not an *Error
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}
