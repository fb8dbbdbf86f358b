package predicate

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

type rqlValue struct {
	kind gjson.Type // String, Number, True, False or Null
	str  string
	num  float64
}

func (v rqlValue) equals(f gjson.Result) bool {
	switch v.kind {
	case gjson.Null, gjson.True, gjson.False:
		return f.Type == v.kind
	case gjson.Number:
		return f.Type == gjson.Number && f.Num == v.num
	case gjson.String:
		return f.Type == gjson.String && f.Str == v.str
	}
	return false
}

// compare orders f against v. Only number/number and string/string are comparable.
func (v rqlValue) compare(f gjson.Result) (int, bool) {
	switch {
	case v.kind == gjson.Number && f.Type == gjson.Number:
		switch {
		case f.Num < v.num:
			return -1, true
		case f.Num > v.num:
			return 1, true
		}
		return 0, true
	case v.kind == gjson.String && f.Type == gjson.String:
		return strings.Compare(f.Str, v.str), true
	}
	return 0, false
}

type logicalNode struct {
	or       bool
	children []Node
}

func (n logicalNode) Match(doc gjson.Result) bool {
	for _, c := range n.children {
		if c.Match(doc) == n.or {
			return n.or
		}
	}
	return !n.or
}

type notNode struct {
	child Node
}

func (n notNode) Match(doc gjson.Result) bool {
	return !n.child.Match(doc)
}

type existsNode struct {
	prop string
}

func (n existsNode) Match(doc gjson.Result) bool {
	return doc.Get(n.prop).Exists()
}

type compareNode struct {
	op    string
	prop  string
	value rqlValue
}

// Match treats a missing property as unequal to everything: only ne matches it.
func (n compareNode) Match(doc gjson.Result) bool {
	f := doc.Get(n.prop)
	if !f.Exists() {
		return n.op == "ne"
	}
	switch n.op {
	case "eq":
		return n.value.equals(f)
	case "ne":
		return !n.value.equals(f)
	}
	c, ok := n.value.compare(f)
	if !ok {
		return false
	}
	switch n.op {
	case "gt":
		return c > 0
	case "ge":
		return c >= 0
	case "lt":
		return c < 0
	case "le":
		return c <= 0
	}
	return false
}

type inNode struct {
	prop   string
	values []rqlValue
}

func (n inNode) Match(doc gjson.Result) bool {
	f := doc.Get(n.prop)
	if !f.Exists() {
		return false
	}
	for _, v := range n.values {
		if v.equals(f) {
			return true
		}
	}
	return false
}

type likeNode struct {
	prop string
	re   *regexp.Regexp
}

func (n likeNode) Match(doc gjson.Result) bool {
	f := doc.Get(n.prop)
	return f.Type == gjson.String && n.re.MatchString(f.Str)
}
