package validate

import (
	"encoding/json"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/hkloudou/condmerge/internal/record"
)

// Rule is a named CEL expression that must hold for every accepted update.
// Variables: previous (dyn, null when there is no previous record),
// next (dyn), path (string).
type Rule struct {
	Name string `yaml:"name" json:"name"`
	Expr string `yaml:"expr" json:"expr"`
}

type compiledRule struct {
	name string
	prg  cel.Program
}

// Rules checks candidate records against compiled CEL rules
type Rules struct {
	rules []compiledRule
}

// NewRules compiles every rule up front so bad rules fail at startup.
func NewRules(rules []Rule) (*Rules, error) {
	env, err := cel.NewEnv(
		cel.Variable("previous", cel.DynType),
		cel.Variable("next", cel.DynType),
		cel.Variable("path", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		ast, iss := env.Compile(r.Expr)
		if iss != nil && iss.Err() != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, iss.Err())
		}
		if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
			return nil, fmt.Errorf("rule %q must evaluate to bool, got %s", r.Name, t)
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{name: r.Name, prg: prg})
	}
	return &Rules{rules: compiled}, nil
}

// Len returns the number of rules
func (r *Rules) Len() int {
	return len(r.rules)
}

// Check returns an error naming the first rule that does not hold.
func (r *Rules) Check(previous, next *record.Record, path string) error {
	if len(r.rules) == 0 {
		return nil
	}
	var prev any
	if previous != nil {
		if err := json.Unmarshal(previous.JSON(), &prev); err != nil {
			return fmt.Errorf("failed to decode previous record: %w", err)
		}
	}
	var cand any
	if err := json.Unmarshal(next.JSON(), &cand); err != nil {
		return fmt.Errorf("failed to decode candidate record: %w", err)
	}

	vars := map[string]any{"previous": prev, "next": cand, "path": path}
	for _, rule := range r.rules {
		out, _, err := rule.prg.Eval(vars)
		if err != nil {
			return fmt.Errorf("rule %q failed: %w", rule.name, err)
		}
		if ok, isBool := out.Value().(bool); !isBool || !ok {
			return fmt.Errorf("rule %q rejected the update", rule.name)
		}
	}
	return nil
}
