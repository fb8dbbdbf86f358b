package condmerge

import (
	"context"

	"github.com/hkloudou/condmerge/internal/validate"
)

// SchemaValidator checks a candidate record before any event is built.
// previous is nil when the record did not exist.
type SchemaValidator interface {
	Validate(ctx context.Context, previous, candidate *Record, req *Request) error
}

// SchemaValidatorFunc adapts a function to SchemaValidator
type SchemaValidatorFunc func(ctx context.Context, previous, candidate *Record, req *Request) error

func (f SchemaValidatorFunc) Validate(ctx context.Context, previous, candidate *Record, req *Request) error {
	return f(ctx, previous, candidate, req)
}

// ValidationRule is a named CEL expression over previous, next and path
type ValidationRule = validate.Rule

type rulesValidator struct {
	rules *validate.Rules
}

// NewRulesValidator compiles rules into a SchemaValidator
func NewRulesValidator(rules []ValidationRule) (SchemaValidator, error) {
	compiled, err := validate.NewRules(rules)
	if err != nil {
		return nil, err
	}
	return &rulesValidator{rules: compiled}, nil
}

func (v *rulesValidator) Validate(ctx context.Context, previous, candidate *Record, req *Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return v.rules.Check(previous, candidate, req.path())
}
