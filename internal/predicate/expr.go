package predicate

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/hkloudou/condmerge/internal/cache"
)

// exprEnv fixes the variable types programs are compiled against
var exprEnv = map[string]any{
	"record":   map[string]any{},
	"headers":  map[string]string{},
	"time_now": time.Time{},
}

// Expr evaluates expr-lang expressions. The environment exposes
// record (decoded document), headers and time_now:
//
//	record.attributes.level > 3 && headers["channel"] == "live"
type Expr struct {
	now      func() time.Time
	programs *cache.Cache[*vm.Program]
}

func NewExpr(opts ...Option) *Expr {
	o := newOptions(opts)
	return &Expr{now: o.Now, programs: cache.New[*vm.Program](o.CacheSize)}
}

func (e *Expr) Evaluate(doc []byte, expression string, headers map[string]string) (bool, error) {
	rec, err := decodeDoc(doc)
	if err != nil {
		return false, err
	}
	if headers == nil {
		headers = map[string]string{}
	}

	prg, err := e.programs.Take(expression, func() (*vm.Program, error) {
		return expr.Compile(expression, expr.Env(exprEnv), expr.AsBool())
	})
	if err != nil {
		return false, err
	}
	out, err := expr.Run(prg, map[string]any{
		"record":   rec,
		"headers":  headers,
		"time_now": e.now(),
	})
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression returned %T, want bool", out)
	}
	return b, nil
}

// CacheStat reports the compiled program cache counters
func (e *Expr) CacheStat() cache.Stat {
	return e.programs.Stat()
}
