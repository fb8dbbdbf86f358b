package merge

import (
	"bytes"

	"github.com/hkloudou/condmerge/internal/failure"
	"github.com/hkloudou/condmerge/internal/pointer"
	"github.com/tidwall/gjson"
)

// PatchFilter drops payload values whose condition is false for the current record.
type PatchFilter struct {
	eval *ConditionEvaluator
}

func NewPatchFilter(eval *ConditionEvaluator) *PatchFilter {
	return &PatchFilter{eval: eval}
}

// Filter folds conds over a copy of payload in order. doc is the current
// record's full representation and is the only input to the predicates.
// Presence is checked on the payload as filtered so far, so once an ancestor
// is removed a later descendant condition is a no-op (its expression is still
// evaluated). The result only ever loses values; payload is not modified.
func (f *PatchFilter) Filter(doc, payload []byte, conds []Condition, headers map[string]string) ([]byte, error) {
	if len(conds) == 0 || !gjson.ParseBytes(payload).IsObject() {
		return payload, nil
	}

	acc := bytes.Clone(payload)
	for _, c := range conds {
		path := pointer.Normalize(c.Path)
		if err := pointer.Validate(path); err != nil {
			return nil, failure.New(failure.KindInvalidExpression, err.Error(), headers, err)
		}
		matches, err := f.eval.Evaluate(doc, c.Expression, headers)
		if err != nil {
			return nil, err
		}
		if matches || !pointer.Exists(acc, path) {
			continue
		}
		if pointer.IsRoot(path) {
			// A failed condition on the whole payload leaves nothing to merge
			acc = []byte("{}")
			continue
		}
		next, err := pointer.Delete(acc, path)
		if err != nil {
			return nil, failure.New(failure.KindInvalidPatchResult, err.Error(), headers, err)
		}
		acc = next
	}
	return acc, nil
}
