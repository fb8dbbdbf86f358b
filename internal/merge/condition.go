package merge

import (
	"fmt"

	"github.com/hkloudou/condmerge/internal/failure"
	"github.com/hkloudou/condmerge/internal/pointer"
	"github.com/hkloudou/condmerge/internal/predicate"
	"github.com/tidwall/gjson"
)

// Condition gates the payload value at Path (relative to the payload root):
// when Expression is false for the current record, that value is dropped.
type Condition struct {
	Path       string `json:"path"`
	Expression string `json:"expression"`
}

// ParseConditions reads a JSON object of pointer -> expression, keeping the
// object's key order. Keys may omit the leading slash ("c" is "/c").
// Empty or null input yields no conditions.
func ParseConditions(raw []byte, headers map[string]string) ([]Condition, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, failure.Newf(failure.KindInvalidExpression, headers, "patch conditions are not valid JSON")
	}
	res := gjson.ParseBytes(raw)
	if res.Type == gjson.Null {
		return nil, nil
	}
	if !res.IsObject() {
		return nil, failure.Newf(failure.KindInvalidExpression, headers, "patch conditions must be a JSON object")
	}

	var (
		conds []Condition
		err   error
	)
	res.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			err = failure.Newf(failure.KindInvalidExpression, headers,
				"patch condition for %q must be a string, got %s", key.String(), value.Type)
			return false
		}
		conds = append(conds, Condition{Path: pointer.Normalize(key.String()), Expression: value.Str})
		return true
	})
	if err != nil {
		return nil, err
	}
	return conds, nil
}

// ConditionEvaluator adapts a predicate engine to the pipeline's error model.
type ConditionEvaluator struct {
	engine predicate.Engine
}

func NewConditionEvaluator(engine predicate.Engine) *ConditionEvaluator {
	return &ConditionEvaluator{engine: engine}
}

// Evaluate runs expression against doc. Every engine failure becomes an
// InvalidExpression error carrying headers.
func (c *ConditionEvaluator) Evaluate(doc []byte, expression string, headers map[string]string) (bool, error) {
	if c.engine == nil {
		return false, failure.Newf(failure.KindInvalidExpression, headers, "no predicate engine configured")
	}
	ok, err := c.engine.Evaluate(doc, expression, headers)
	if err != nil {
		return false, failure.New(failure.KindInvalidExpression, err.Error(), headers,
			fmt.Errorf("evaluate %q: %w", expression, err))
	}
	return ok, nil
}
