package predicate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hkloudou/condmerge/internal/pointer"
	"github.com/tidwall/gjson"
)

// RQL evaluates resource-query-language predicates such as
//
//	and(eq(attributes/color,"red"),gt(features/lamp/properties/level,3))
//
// Properties are slash separated paths into the record. Supported operators:
// and, or, not, eq, ne, gt, ge, lt, le, in, like, ilike, exists.
// The placeholders time:now (RFC 3339 string) and time:now_epoch_millis are
// resolved against the engine clock on every evaluation.
type RQL struct {
	now func() time.Time
}

func NewRQL(opts ...Option) *RQL {
	o := newOptions(opts)
	return &RQL{now: o.Now}
}

func (e *RQL) Evaluate(doc []byte, expression string, _ map[string]string) (bool, error) {
	node, err := ParseRQL(expression, e.now())
	if err != nil {
		return false, err
	}
	if !gjson.ValidBytes(doc) {
		return false, fmt.Errorf("record is not valid JSON")
	}
	return node.Match(gjson.ParseBytes(doc)), nil
}

// SyntaxError reports where an RQL expression stopped parsing
type SyntaxError struct {
	Expression string
	Offset     int
	Msg        string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("rql: %s at position %d in %q", e.Msg, e.Offset, e.Expression)
}

// Node is a parsed RQL predicate
type Node interface {
	Match(doc gjson.Result) bool
}

// ParseRQL parses expression, resolving placeholders against now.
func ParseRQL(expression string, now time.Time) (Node, error) {
	p := &rqlParser{src: expression, now: now}
	node, err := p.query()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected trailing input %q", p.src[p.pos:])
	}
	return node, nil
}

type rqlParser struct {
	src string
	pos int
	now time.Time
}

func (p *rqlParser) errorf(format string, args ...any) error {
	return &SyntaxError{Expression: p.src, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *rqlParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n' || p.src[p.pos] == '\r') {
		p.pos++
	}
}

func (p *rqlParser) accept(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *rqlParser) expect(c byte) error {
	if !p.accept(c) {
		if p.pos >= len(p.src) {
			return p.errorf("expected %q but reached end of input", c)
		}
		return p.errorf("expected %q, found %q", c, p.src[p.pos])
	}
	return nil
}

func (p *rqlParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= 'a' && p.src[p.pos] <= 'z' {
		p.pos++
	}
	return p.src[start:p.pos]
}

// token reads a bare word up to a delimiter
func (p *rqlParser) token() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ',' || c == ')' || c == '(' || c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *rqlParser) query() (Node, error) {
	name := p.ident()
	if name == "" {
		return nil, p.errorf("expected operator")
	}
	if err := p.expect('('); err != nil {
		return nil, err
	}

	var (
		node Node
		err  error
	)
	switch name {
	case "and", "or":
		node, err = p.logical(name == "or")
	case "not":
		var child Node
		if child, err = p.query(); err == nil {
			node = notNode{child: child}
		}
	case "exists":
		var prop string
		if prop, err = p.property(); err == nil {
			node = existsNode{prop: prop}
		}
	case "eq", "ne", "gt", "ge", "lt", "le":
		node, err = p.comparison(name)
	case "like", "ilike":
		node, err = p.like(name == "ilike")
	case "in":
		node, err = p.in()
	default:
		return nil, p.errorf("unknown operator %q", name)
	}
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *rqlParser) logical(or bool) (Node, error) {
	var children []Node
	for {
		child, err := p.query()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
		if !p.accept(',') {
			break
		}
	}
	return logicalNode{or: or, children: children}, nil
}

func (p *rqlParser) comparison(op string) (Node, error) {
	prop, err := p.property()
	if err != nil {
		return nil, err
	}
	if err := p.expect(','); err != nil {
		return nil, err
	}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	return compareNode{op: op, prop: prop, value: v}, nil
}

func (p *rqlParser) like(caseInsensitive bool) (Node, error) {
	prop, err := p.property()
	if err != nil {
		return nil, err
	}
	if err := p.expect(','); err != nil {
		return nil, err
	}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	if v.kind != gjson.String {
		return nil, p.errorf("like pattern must be a string")
	}
	re, err := likePattern(v.str, caseInsensitive)
	if err != nil {
		return nil, p.errorf("invalid like pattern: %v", err)
	}
	return likeNode{prop: prop, re: re}, nil
}

func (p *rqlParser) in() (Node, error) {
	prop, err := p.property()
	if err != nil {
		return nil, err
	}
	var values []rqlValue
	for p.accept(',') {
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, p.errorf("in requires at least one value")
	}
	return inNode{prop: prop, values: values}, nil
}

// property returns the gjson path of a slash separated property
func (p *rqlParser) property() (string, error) {
	start := p.pos
	tok := p.token()
	if tok == "" {
		return "", p.errorf("expected property")
	}
	ptr := "/" + strings.TrimPrefix(tok, "/")
	if err := pointer.Validate(ptr); err != nil || pointer.IsRoot(ptr) {
		p.pos = start
		return "", p.errorf("invalid property %q", tok)
	}
	return pointer.ToGjsonPath(ptr), nil
}

func (p *rqlParser) value() (rqlValue, error) {
	p.skipSpace()
	if p.pos < len(p.src) && (p.src[p.pos] == '"' || p.src[p.pos] == '\'') {
		return p.quoted()
	}
	tok := p.token()
	switch tok {
	case "":
		return rqlValue{}, p.errorf("expected value")
	case "true":
		return rqlValue{kind: gjson.True}, nil
	case "false":
		return rqlValue{kind: gjson.False}, nil
	case "null":
		return rqlValue{kind: gjson.Null}, nil
	case "time:now":
		return rqlValue{kind: gjson.String, str: p.now.UTC().Format(time.RFC3339Nano)}, nil
	case "time:now_epoch_millis":
		return rqlValue{kind: gjson.Number, num: float64(p.now.UnixMilli())}, nil
	}
	if strings.Contains(tok, ":") {
		return rqlValue{}, p.errorf("unsupported placeholder %q", tok)
	}
	n, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return rqlValue{}, p.errorf("invalid value %q", tok)
	}
	return rqlValue{kind: gjson.Number, num: n}, nil
}

func (p *rqlParser) quoted() (rqlValue, error) {
	quote := p.src[p.pos]
	p.pos++
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(p.src):
			sb.WriteByte(p.src[p.pos+1])
			p.pos += 2
		case c == quote:
			p.pos++
			return rqlValue{kind: gjson.String, str: sb.String()}, nil
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return rqlValue{}, p.errorf("unterminated string")
}

func likePattern(pattern string, caseInsensitive bool) (*regexp.Regexp, error) {
	var sb strings.Builder
	if caseInsensitive {
		sb.WriteString("(?i)")
	}
	sb.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}
