package predicate

import (
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/hkloudou/condmerge/internal/cache"
)

// CEL evaluates Common Expression Language predicates with the variables
// record (dyn), headers (map(string, string)) and time_now (timestamp):
//
//	record.attributes.level > 3.0 && headers["channel"] == "live"
type CEL struct {
	env      *cel.Env
	now      func() time.Time
	programs *cache.Cache[cel.Program]
}

func NewCEL(opts ...Option) (*CEL, error) {
	o := newOptions(opts)
	env, err := cel.NewEnv(
		cel.Variable("record", cel.DynType),
		cel.Variable("headers", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("time_now", cel.TimestampType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &CEL{env: env, now: o.Now, programs: cache.New[cel.Program](o.CacheSize)}, nil
}

func (e *CEL) compile(expression string) (cel.Program, error) {
	ast, iss := e.env.Compile(expression)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must evaluate to bool, got %s", t)
	}
	return e.env.Program(ast)
}

// CacheStat reports the compiled program cache counters
func (e *CEL) CacheStat() cache.Stat {
	return e.programs.Stat()
}

func (e *CEL) Evaluate(doc []byte, expression string, headers map[string]string) (bool, error) {
	prg, err := e.programs.Take(expression, func() (cel.Program, error) {
		return e.compile(expression)
	})
	if err != nil {
		return false, err
	}

	rec, err := decodeDoc(doc)
	if err != nil {
		return false, err
	}
	if headers == nil {
		headers = map[string]string{}
	}
	out, _, err := prg.Eval(map[string]any{
		"record":   rec,
		"headers":  headers,
		"time_now": e.now(),
	})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression returned %T, want bool", out.Value())
	}
	return b, nil
}
